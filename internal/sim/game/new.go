package game

import (
	"fmt"

	"narcosim.ai/internal/sim/catalogs"
	"narcosim.ai/internal/sim/rng"
	"narcosim.ai/internal/sim/tuning"
)

// New builds day-1 state from the catalogs. Listing prices are left at zero;
// the market engine fills them before the state is exposed.
func New(cats *catalogs.Catalogs, tune tuning.Tuning, seed int64, r *rng.Source) (*State, error) {
	if _, ok := cats.Regions.ByID[tune.Player.StartingRegion]; !ok {
		return nil, fmt.Errorf("starting region %q not in catalog", tune.Player.StartingRegion)
	}

	s := &State{
		Seed:       seed,
		Day:        1,
		Regions:    make(map[string]*Region, len(cats.Regions.Order)),
		Currencies: make(map[string]*Currency, len(cats.Currencies.Order)),
	}

	for _, rid := range cats.Regions.Order {
		def := cats.Regions.ByID[rid]
		reg := &Region{
			ID:       def.ID,
			Name:     def.Name,
			Listings: map[ItemKey]*Listing{},
		}
		for _, m := range def.Markets {
			cd := cats.Commodities.ByID[m.Commodity]
			base := r.Uniform(cd.BasePrice[0], cd.BasePrice[1])
			for _, qs := range m.Qualities {
				q, ok := ParseQuality(qs)
				if !ok {
					return nil, fmt.Errorf("region %s: bad quality %q", rid, qs)
				}
				stock := r.IntRange(m.Stock[0], m.Stock[1])
				k := Key(m.Commodity, q)
				reg.Listings[k] = &Listing{
					Commodity:     m.Commodity,
					Quality:       q,
					Tier:          cd.Tier,
					BasePrice:     base,
					Stock:         stock,
					BaselineStock: stock,
					MaxStock:      m.MaxStock,
					Pressure:      1,
				}
				reg.Order = append(reg.Order, k)
			}
		}
		s.Regions[rid] = reg
		s.RegionOrder = append(s.RegionOrder, rid)
	}

	for _, cid := range cats.Currencies.Order {
		def := cats.Currencies.ByID[cid]
		s.Currencies[cid] = &Currency{
			ID:         def.ID,
			Name:       def.Name,
			Price:      def.InitialPrice,
			History:    []float64{def.InitialPrice},
			Stakeable:  def.Stakeable,
			Volatility: def.Volatility,
			MinPrice:   def.MinPrice,
		}
		s.CurrOrder = append(s.CurrOrder, cid)
	}

	for _, id := range cats.Rivals.Order {
		def := cats.Rivals.ByID[id]
		s.Rivals = append(s.Rivals, &Rival{
			ID:           def.ID,
			Name:         def.Name,
			Profile:      Profile(def.Profile),
			Region:       def.Region,
			Commodity:    def.Commodity,
			Aggression:   def.Aggression,
			Activity:     def.Activity,
			ImpactWeight: def.ImpactWeight,
		})
	}

	for _, d := range tune.Debts {
		s.Debts = append(s.Debts, Debt{Amount: d.Amount, DueDay: d.DueDay})
	}

	s.Player = Player{
		Cash:           tune.Player.StartingCash,
		InformantTrust: tune.Player.StartingInformantTrust,
		Inventory:      map[ItemKey]int{},
		AvgCost:        map[ItemKey]float64{},
		Capacity:       tune.Player.BaseCapacity,
		Wallet:         map[string]float64{},
		Skills:         map[string]bool{},
		Region:         tune.Player.StartingRegion,
		ProfitByRegion: map[string]float64{},
	}
	for _, cid := range s.CurrOrder {
		s.Player.Wallet[cid] = 0
	}
	return s, nil
}
