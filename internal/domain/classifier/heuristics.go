package classifier

import (
	"math"
	"strings"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// Amount-shape heuristics, tried after keyword rules. Thresholds are in
// transaction-currency units.
const (
	smallFeeLimit    = 15.0
	mealRangeLow     = 15.0
	mealRangeHigh    = 120.0
	roundAmountFloor = 1000.0
)

var foodKeywords = []string{
	"restaurante", "lanchonete", "padaria", "pizzaria", "ifood",
	"cafe", "burger", "lanche", "almoco", "jantar",
}

// HeuristicCategory guesses a category from coarse amount shape when no
// rule or model produced one.
func HeuristicCategory(tx *model.BankTransaction) (string, bool) {
	abs := math.Abs(tx.Amount)

	// Round amounts at or above four figures are almost always
	// transfers between own accounts.
	if abs >= roundAmountFloor && abs == math.Trunc(abs) {
		return "Transfers", true
	}

	if tx.Kind == model.KindDebit {
		if abs > 0 && abs <= smallFeeLimit {
			return "Bank Fees", true
		}
		if abs >= mealRangeLow && abs <= mealRangeHigh {
			desc := model.NormalizeDescription(tx.RawDescription)
			for _, kw := range foodKeywords {
				if strings.Contains(desc, kw) {
					return "Meals", true
				}
			}
		}
	}

	return "", false
}
