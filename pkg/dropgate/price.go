package dropgate

import (
	"context"
	"fmt"

	"github.com/nikixstore/storefront/pkg/models"
)

const missingPrice = "Цена не указана, пожалуйста обратитесь в поддержку"

// PriceView is what a buyer sees in place of a product's price.
type PriceView struct {
	// Gated is set when the product is hidden behind the drop password.
	Gated bool
	// Prompt replaces the whole card while Gated.
	Prompt string
	// Line is the rendered price line.
	Line string
	// Until closes a drop card with the end of the special price.
	Until string
	// Missing is set when the price is zero and the operator was alerted.
	Missing bool
}

// Price selects the view of product for userID: the gate prompt, the drop
// price struck against the regular one, or the regular price.
func (g *Gate) Price(ctx context.Context, product models.Product, userID int64) (PriceView, error) {
	if !product.Drop() {
		if product.Price == 0 {
			return g.missing(ctx, product), nil
		}
		return PriceView{Line: fmt.Sprintf("Цена: <b>%s</b> ₽", models.FormatRub(product.Price))}, nil
	}

	gated, err := g.IsGated(ctx, product, userID)
	if err != nil {
		return PriceView{}, err
	}
	info, err := g.Info(ctx)
	if err != nil {
		return PriceView{}, err
	}
	if gated {
		return PriceView{
			Gated:  true,
			Prompt: fmt.Sprintf("Для доступа к модели необходимо ввести ключ-пароль. Он появится в канале в <b>%s</b>", info.StartDate),
		}, nil
	}

	until := fmt.Sprintf("Специальная стоимость для дропа действует до <b>%s</b>", info.StopDate)
	if product.Price == 0 || product.DropPrice == 0 {
		v := g.missing(ctx, product)
		v.Until = until
		return v, nil
	}
	return PriceView{
		Line: fmt.Sprintf("Цена: <s>%s ₽</s> <b>%s</b> ₽",
			models.FormatRub(product.Price), models.FormatRub(product.DropPrice)),
		Until: until,
	}, nil
}

func (g *Gate) missing(ctx context.Context, product models.Product) PriceView {
	g.alert.Alert(ctx, fmt.Sprintf("Не указана цена на %s, артикул: %s", product.Name, product.Article))
	return PriceView{Line: missingPrice, Missing: true}
}
