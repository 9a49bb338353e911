package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
)

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// CheckInvariants validates a staged state before it is committed.
func CheckInvariants(s *State, maxHeat int, priceFloor float64) error {
	for _, id := range s.RegionOrder {
		r := s.Regions[id]
		if r == nil {
			return Invariantf("region %s missing", id)
		}
		if r.Heat < 0 || r.Heat > maxHeat {
			return Invariantf("region %s heat %d out of [0,%d]", id, r.Heat, maxHeat)
		}
		for _, k := range r.Order {
			l := r.Listings[k]
			if l == nil {
				return Invariantf("region %s listing %s missing", id, k)
			}
			for _, p := range []float64{l.BuyPrice, l.SellPrice} {
				if !finite(p) || p < 0 || p < priceFloor {
					return Invariantf("region %s listing %s price %v below floor %v", id, k, p, priceFloor)
				}
			}
			if l.Stock < 0 || l.Stock > l.MaxStock {
				return Invariantf("region %s listing %s stock %d out of [0,%d]", id, k, l.Stock, l.MaxStock)
			}
			if !finite(l.Pressure) || l.Pressure <= 0 {
				return Invariantf("region %s listing %s pressure %v", id, k, l.Pressure)
			}
		}
	}
	for _, id := range s.CurrOrder {
		c := s.Currencies[id]
		if c == nil || !finite(c.Price) || c.Price <= 0 || c.Price < c.MinPrice {
			return Invariantf("currency %s price invalid", id)
		}
	}
	for _, rv := range s.Rivals {
		if rv.Busted != (rv.BustedDaysRemaining > 0) {
			return Invariantf("rival %s busted=%v days=%d", rv.ID, rv.Busted, rv.BustedDaysRemaining)
		}
	}

	p := &s.Player
	if total := p.InventoryTotal(); total > p.Capacity {
		return Invariantf("inventory %d exceeds capacity %d", total, p.Capacity)
	}
	for k, q := range p.Inventory {
		if q < 0 {
			return Invariantf("inventory %s negative", k)
		}
	}
	if !finite(p.Cash) {
		return Invariantf("cash not finite")
	}
	for id, bal := range p.Wallet {
		if !finite(bal) || bal < 0 {
			return Invariantf("wallet %s balance %v", id, bal)
		}
	}
	if !finite(p.StakedDC) || p.StakedDC < 0 {
		return Invariantf("staked balance %v", p.StakedDC)
	}
	if (p.PendingLaunderedSC > 0) != (p.PendingArrivalDay > 0) {
		return Invariantf("pending laundering half set: amount=%v day=%d", p.PendingLaunderedSC, p.PendingArrivalDay)
	}
	if p.PendingLaunderedSC < 0 {
		return Invariantf("pending laundering negative")
	}
	if _, ok := s.Regions[p.Region]; !ok {
		return Invariantf("player in unknown region %q", p.Region)
	}
	return nil
}

// Digest is a stable hash of the full state. encoding/json sorts map keys, so
// equal states always hash equal.
func Digest(s *State) string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
