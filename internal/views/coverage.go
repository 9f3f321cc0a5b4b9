package views

import (
	"math"
	"strings"

	"github.com/matthieukhl/loyaltydesk/internal/models"
)

// WasteFactor adds a 10% allowance for cuts and waste.
const WasteFactor = 1.10

// CoverageEstimate is the calculator result for one product.
type CoverageEstimate struct {
	Product      string  `json:"product"`
	Unit         string  `json:"unit"`
	Coverage     float64 `json:"coverage"`
	Area         float64 `json:"area"`
	AdjustedArea float64 `json:"adjusted_area"`
	Units        int     `json:"units"`
}

// CoverageBags returns ceil(length*width*1.10/coveragePerUnit). Non-positive
// or non-finite inputs yield ok=false instead of an error.
func CoverageBags(length, width, coveragePerUnit float64) (int, bool) {
	if !positive(length) || !positive(width) || !positive(coveragePerUnit) {
		return 0, false
	}
	adjusted := length * width * WasteFactor
	// tolerate float noise such as 55.00000000000001 for an exact multiple
	return int(math.Ceil(adjusted/coveragePerUnit - 1e-9)), true
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Coverage computes the full estimate for a product.
func Coverage(length, width float64, p models.CoverageProduct) (CoverageEstimate, bool) {
	units, ok := CoverageBags(length, width, p.Coverage)
	if !ok {
		return CoverageEstimate{}, false
	}
	area := length * width
	return CoverageEstimate{
		Product:      p.Name,
		Unit:         p.Unit,
		Coverage:     p.Coverage,
		Area:         models.RoundCents(area),
		AdjustedArea: models.RoundCents(area * WasteFactor),
		Units:        units,
	}, true
}

// FindCoverageProduct looks a product up by name, ignoring case.
func FindCoverageProduct(products []models.CoverageProduct, name string) (models.CoverageProduct, bool) {
	for _, p := range products {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return models.CoverageProduct{}, false
}
