package auctions

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
)

// FormatAmount renders integer cents as a fixed two-decimal amount.
func FormatAmount(cents int64) string {
	return decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}

// PackVariables are the template variables shared by bid and auction notifications.
func PackVariables(template *models.PackTemplate, amountCents int64) models.Variables {
	vars := models.Variables{"amount": FormatAmount(amountCents)}
	if template != nil {
		vars["packSlug"] = template.Slug
		vars["packTitle"] = template.Title
	}
	return vars
}
