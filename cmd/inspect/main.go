// Command inspect lists pending checkouts that were never completed and flags
// the ones left half-written by a failed creation.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/olekukonko/tablewriter"

	"github.com/joao-fontenele/checkoutflow/internal/config"
	"github.com/joao-fontenele/checkoutflow/internal/domain"
	"github.com/joao-fontenele/checkoutflow/internal/orders"
	"github.com/joao-fontenele/checkoutflow/internal/telemetry"
)

func main() {
	olderThan := flag.Duration("older-than", 30*time.Minute, "only pending orders created before now minus this duration")
	limit := flag.Int("limit", 100, "maximum number of orders to list")
	onlyBroken := flag.Bool("broken", false, "only show orders missing items or a gateway order")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}
	schema := os.Getenv("POSTGRES_SCHEMA")
	if schema == "" {
		schema = "checkout"
	}

	ctx := context.Background()
	db, err := telemetry.OpenDB(ctx, config.WithSearchPath(postgresURL, schema))
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	svc := orders.NewService(orders.NewOrderRepository(db), nil, nil, orders.ServiceConfig{}, logger)

	stale, err := svc.ListStalePending(ctx, *olderThan, *limit)
	if err != nil {
		logger.Error("failed to list pending orders", "error", err)
		os.Exit(1)
	}

	if err := render(os.Stdout, stale, *onlyBroken, time.Now()); err != nil {
		logger.Error("failed to render table", "error", err)
		os.Exit(1)
	}
}

func render(w io.Writer, list []domain.OrderDetails, onlyBroken bool, now time.Time) error {
	table := tablewriter.NewWriter(w)
	table.Header("Order", "Method", "Total", "Age", "Items", "Gateway Order", "Problems")

	shown := 0
	for _, o := range list {
		problems := orders.Problems(o)
		if onlyBroken && len(problems) == 0 {
			continue
		}

		gatewayRef := "-"
		if o.GatewayOrderID != nil {
			gatewayRef = *o.GatewayOrderID
		}

		if err := table.Append([]string{
			o.ID,
			string(o.PaymentMethod),
			o.Total.StringFixed(2),
			now.Sub(o.CreatedAt).Truncate(time.Second).String(),
			strconv.Itoa(len(o.Items)),
			gatewayRef,
			strings.Join(problems, ", "),
		}); err != nil {
			return err
		}
		shown++
	}

	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d pending order(s)\n", shown)
	return err
}
