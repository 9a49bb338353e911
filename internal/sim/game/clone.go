package game

// Clone returns a deep copy; the engine mutates the copy and commits it only
// when the whole operation succeeds.
func (s *State) Clone() *State {
	out := *s

	out.Regions = make(map[string]*Region, len(s.Regions))
	for id, r := range s.Regions {
		out.Regions[id] = r.clone()
	}
	out.RegionOrder = append([]string(nil), s.RegionOrder...)

	out.Currencies = make(map[string]*Currency, len(s.Currencies))
	for id, c := range s.Currencies {
		cc := *c
		cc.History = append([]float64(nil), c.History...)
		out.Currencies[id] = &cc
	}
	out.CurrOrder = append([]string(nil), s.CurrOrder...)

	out.Rivals = make([]*Rival, len(s.Rivals))
	for i, r := range s.Rivals {
		rc := *r
		out.Rivals[i] = &rc
	}

	out.Player = s.Player.clone()
	out.Debts = append([]Debt(nil), s.Debts...)

	out.Choices = make([]*PendingChoice, len(s.Choices))
	for i, c := range s.Choices {
		cc := *c
		cc.Options = append([]string(nil), c.Options...)
		out.Choices[i] = &cc
	}
	out.AchievedLegacy = append([]string(nil), s.AchievedLegacy...)
	return &out
}

func (r *Region) clone() *Region {
	out := *r
	out.Listings = make(map[ItemKey]*Listing, len(r.Listings))
	for k, l := range r.Listings {
		lc := *l
		out.Listings[k] = &lc
	}
	out.Order = append([]ItemKey(nil), r.Order...)
	out.Effects = append([]Effect(nil), r.Effects...)
	return &out
}

func (p Player) clone() Player {
	out := p
	out.Inventory = make(map[ItemKey]int, len(p.Inventory))
	for k, v := range p.Inventory {
		out.Inventory[k] = v
	}
	out.AvgCost = make(map[ItemKey]float64, len(p.AvgCost))
	for k, v := range p.AvgCost {
		out.AvgCost[k] = v
	}
	out.Wallet = make(map[string]float64, len(p.Wallet))
	for k, v := range p.Wallet {
		out.Wallet[k] = v
	}
	out.Skills = make(map[string]bool, len(p.Skills))
	for k, v := range p.Skills {
		out.Skills[k] = v
	}
	out.ProfitByRegion = make(map[string]float64, len(p.ProfitByRegion))
	for k, v := range p.ProfitByRegion {
		out.ProfitByRegion[k] = v
	}
	return out
}

// Normalize allocates maps a decoder may have left nil.
func (s *State) Normalize() {
	if s.Regions == nil {
		s.Regions = map[string]*Region{}
	}
	for _, r := range s.Regions {
		if r.Listings == nil {
			r.Listings = map[ItemKey]*Listing{}
		}
	}
	if s.Currencies == nil {
		s.Currencies = map[string]*Currency{}
	}
	p := &s.Player
	if p.Inventory == nil {
		p.Inventory = map[ItemKey]int{}
	}
	if p.AvgCost == nil {
		p.AvgCost = map[ItemKey]float64{}
	}
	if p.Wallet == nil {
		p.Wallet = map[string]float64{}
	}
	if p.Skills == nil {
		p.Skills = map[string]bool{}
	}
	if p.ProfitByRegion == nil {
		p.ProfitByRegion = map[string]float64{}
	}
}
