package classifier

import (
	"strings"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// keywordRule maps memo substrings to a category. Keywords are matched
// against the normalized description, so they must be lowercase and
// punctuation-free.
type keywordRule struct {
	keywords []string
	category string
}

// Rules are split by money direction: "juros" on a credit is interest
// earned, on a debit it is interest paid.
var creditRules = []keywordRule{
	{keywords: []string{"venda", "vendas", "recebimento"}, category: "Sales"},
	{keywords: []string{"juros", "rendimento"}, category: "Interest Income"},
	{keywords: []string{"reembolso", "estorno"}, category: "Refunds"},
	{keywords: []string{"aporte"}, category: "Owner Contributions"},
}

var debitRules = []keywordRule{
	{keywords: []string{"aluguel"}, category: "Rent"},
	{keywords: []string{"energia", "luz", "agua", "internet", "telefone"}, category: "Utilities"},
	{keywords: []string{"salario", "folha", "pagamento funcionario"}, category: "Payroll"},
	{keywords: []string{"imposto", "darf", " das ", "tributo"}, category: "Taxes"},
	{keywords: []string{"tarifa", "taxa bancaria", "anuidade", "iof"}, category: "Bank Fees"},
	{keywords: []string{"juros", "encargos"}, category: "Interest Expense"},
	{keywords: []string{"combustivel", "posto"}, category: "Transport"},
	{keywords: []string{"fornecedor"}, category: "Suppliers"},
}

// RuleCategory applies the direction-appropriate keyword rules to a
// statement memo. The first rule whose keyword appears wins.
func RuleCategory(description string, kind model.TransactionKind) (string, bool) {
	normalized := " " + model.NormalizeDescription(description) + " "

	rules := debitRules
	if kind == model.KindCredit {
		rules = creditRules
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(normalized, kw) {
				return r.category, true
			}
		}
	}
	return "", false
}
