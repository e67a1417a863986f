package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/voucherverse/storefront-api/internal/domain"
)

// PromoRanker orders promo types; lower ranks come first. content.Site
// implements it from its promo_priorities list.
type PromoRanker interface {
	PromoRank(promoType string) int
}

type rankKey struct {
	priority bool
	promo    int
	discount decimal.Decimal
	rating   float64
}

func keyOf(p *domain.Product, promo PromoRanker) rankKey {
	k := rankKey{promo: int(^uint(0) >> 1)}
	if p.Rating != nil {
		k.rating = p.Rating.Average()
	}
	v := p.Voucher
	if v == nil {
		return k
	}
	k.priority = v.IsPriority
	if promo != nil {
		pt := ""
		if v.PromoType != nil {
			pt = *v.PromoType
		}
		k.promo = promo.PromoRank(pt)
	}
	if v.DiscountAmount.Valid {
		k.discount = v.DiscountAmount.Decimal
	}
	return k
}

// RankProducts sorts products in place: priority promos first, then by
// promo-type rank, discount (desc), average rating (desc) and creation time
// (newest first). The sort is stable, so equal keys keep their input order.
func RankProducts(ps []domain.Product, promo PromoRanker) {
	type item struct {
		p domain.Product
		k rankKey
	}
	items := make([]item, len(ps))
	for i := range ps {
		items[i] = item{p: ps[i], k: keyOf(&ps[i], promo)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].k, items[j].k
		if a.priority != b.priority {
			return a.priority
		}
		if a.promo != b.promo {
			return a.promo < b.promo
		}
		if c := a.discount.Cmp(b.discount); c != 0 {
			return c > 0
		}
		if a.rating != b.rating {
			return a.rating > b.rating
		}
		return items[i].p.CreatedAt.After(items[j].p.CreatedAt)
	})
	for i := range items {
		ps[i] = items[i].p
	}
}
