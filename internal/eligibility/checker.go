// Package eligibility enforces the safe-selling postal code restriction on
// seller listings.
package eligibility

import (
	"fmt"
	"strings"

	"github.com/quickbasket/orderflow/internal/orders"
	"github.com/quickbasket/orderflow/internal/products"
)

// Result reports whether a product may ship to a postal code. Reason is set
// only when Eligible is false.
type Result struct {
	Eligible bool
	Reason   string
}

// Check applies the safe-selling rule. Only SAFE-mode seller listings with a
// configured postal code set constrain anything: the shipping postal code
// must exactly match one entry (whitespace is trimmed, nothing else is
// normalized). Catalog products, NORMAL-mode listings, and SAFE listings with
// an empty set are always eligible.
func Check(p *products.Resolved, shippingPostalCode string) Result {
	if p.Pool != orders.PoolListing || p.SellingMode != products.ModeSafe {
		return Result{Eligible: true}
	}
	if len(p.EligiblePostalCodes) == 0 {
		// no constraint configured on this safe listing
		return Result{Eligible: true}
	}

	submitted := strings.TrimSpace(shippingPostalCode)
	for _, code := range p.EligiblePostalCodes {
		if strings.TrimSpace(code) == submitted {
			return Result{Eligible: true}
		}
	}

	return Result{
		Eligible: false,
		Reason: fmt.Sprintf("%q is only sold to postal codes %s; shipping address has %q",
			p.Name, strings.Join(p.EligiblePostalCodes, ", "), submitted),
	}
}
