package orders

import "github.com/joao-fontenele/checkoutflow/internal/domain"

const (
	ProblemNoItems        = "missing items"
	ProblemNoGatewayOrder = "missing gateway order"
)

// Problems lists what a partially created checkout is missing. Order creation
// is not atomic, so a pending order can lack its items or, for gateway
// methods, the remote order reference.
func Problems(o domain.OrderDetails) []string {
	var out []string
	if len(o.Items) == 0 {
		out = append(out, ProblemNoItems)
	}
	if o.PaymentMethod.UsesGateway() && o.GatewayOrderID == nil {
		out = append(out, ProblemNoGatewayOrder)
	}
	return out
}
