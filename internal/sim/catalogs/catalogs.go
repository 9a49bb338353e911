package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Catalogs struct {
	Commodities CommodityCatalog
	Regions     RegionCatalog
	Currencies  CurrencyCatalog
	Rivals      RivalCatalog
	Skills      SkillCatalog
	Events      EventCatalog
}

type CommodityCatalog struct {
	Order  []string
	ByID   map[string]CommodityDef
	Digest string
}

type CommodityDef struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Tier      int        `json:"tier"`
	BasePrice [2]float64 `json:"base_price"` // [min,max]
}

type RegionCatalog struct {
	Order  []string
	ByID   map[string]RegionDef
	Digest string
}

type RegionDef struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Markets []RegionListing `json:"markets"`
}

type RegionListing struct {
	Commodity string   `json:"commodity"`
	Qualities []string `json:"qualities"`
	Stock     [2]int   `json:"stock"` // initial [min,max]
	MaxStock  int      `json:"max_stock"`
}

type CurrencyCatalog struct {
	Order  []string
	ByID   map[string]CurrencyDef
	Digest string
}

type CurrencyDef struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	InitialPrice float64 `json:"initial_price"`
	Volatility   float64 `json:"volatility"`
	MinPrice     float64 `json:"min_price"`
	Stakeable    bool    `json:"stakeable"`
}

type RivalCatalog struct {
	Order  []string
	ByID   map[string]RivalDef
	Digest string
}

type RivalDef struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Profile      string  `json:"profile"` // AGGRESSIVE, BALANCED, CAUTIOUS
	Region       string  `json:"region"`
	Commodity    string  `json:"commodity"`
	Aggression   float64 `json:"aggression"`
	Activity     float64 `json:"activity"`
	ImpactWeight float64 `json:"impact_weight"`
}

type SkillCatalog struct {
	ByID   map[string]SkillDef
	Digest string
}

type SkillDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cost        int    `json:"cost"`
	Description string `json:"description"`
}

type EventCatalog struct {
	// Order is registration order: ascending EventDef.Order, then id.
	Order  []string
	ByID   map[string]EventDef
	Digest string
}

// EventDef parameterizes one event type. Ranges are [min,max]; a zero range
// means the parameter does not apply to that type.
type EventDef struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"` // MARKET, RISK, OPPORTUNITY, ECOSYSTEM
	Order       int     `json:"order"`
	Weight      float64 `json:"weight"`
	Title       string  `json:"title"`
	Description string  `json:"description"`

	Tiers     []int      `json:"tiers,omitempty"`
	Duration  [2]int     `json:"duration,omitempty"`
	BuyMult   [2]float64 `json:"buy_mult,omitempty"`
	SellMult  [2]float64 `json:"sell_mult,omitempty"`
	StockMult float64    `json:"stock_mult,omitempty"`
	StockAdd  [2]int     `json:"stock_add,omitempty"`
	Heat      [2]int     `json:"heat,omitempty"`
	Qty       [2]int     `json:"qty,omitempty"`
	CashPct   [2]float64 `json:"cash_pct,omitempty"`

	EncounterBonus float64 `json:"encounter_bonus,omitempty"`
	SellShare      float64 `json:"sell_share,omitempty"`
	Penalty        float64 `json:"penalty,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadCommodities(filepath.Join(configDir, "commodities.json"), &c.Commodities); err != nil {
		return nil, err
	}
	if err := loadRegions(filepath.Join(configDir, "regions.json"), &c.Regions); err != nil {
		return nil, err
	}
	if err := loadCurrencies(filepath.Join(configDir, "currencies.json"), &c.Currencies); err != nil {
		return nil, err
	}
	if err := loadRivals(filepath.Join(configDir, "rivals.json"), &c.Rivals); err != nil {
		return nil, err
	}
	if err := loadSkills(filepath.Join(configDir, "skills.json"), &c.Skills); err != nil {
		return nil, err
	}
	if err := loadEvents(filepath.Join(configDir, "events"), &c.Events); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks cross references between catalogs.
func (c *Catalogs) Validate() error {
	for _, rid := range c.Regions.Order {
		r := c.Regions.ByID[rid]
		for _, l := range r.Markets {
			if _, ok := c.Commodities.ByID[l.Commodity]; !ok {
				return fmt.Errorf("regions.json: %s lists unknown commodity %q", rid, l.Commodity)
			}
			if len(l.Qualities) == 0 {
				return fmt.Errorf("regions.json: %s/%s has no qualities", rid, l.Commodity)
			}
			if l.Stock[1] < l.Stock[0] || l.MaxStock < l.Stock[1] {
				return fmt.Errorf("regions.json: %s/%s stock range invalid", rid, l.Commodity)
			}
		}
	}
	for _, id := range c.Rivals.Order {
		rv := c.Rivals.ByID[id]
		if _, ok := c.Regions.ByID[rv.Region]; !ok {
			return fmt.Errorf("rivals.json: %s has unknown region %q", id, rv.Region)
		}
		if _, ok := c.Commodities.ByID[rv.Commodity]; !ok {
			return fmt.Errorf("rivals.json: %s has unknown commodity %q", id, rv.Commodity)
		}
	}
	for _, id := range c.Commodities.Order {
		d := c.Commodities.ByID[id]
		if d.Tier < 1 || d.Tier > 4 {
			return fmt.Errorf("commodities.json: %s tier %d out of [1,4]", id, d.Tier)
		}
		if d.BasePrice[0] <= 0 || d.BasePrice[1] < d.BasePrice[0] {
			return fmt.Errorf("commodities.json: %s base_price invalid", id)
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// readList decodes a JSON array file and returns the raw bytes for digesting.
func readList(path string, out any) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return raw, nil
}

func loadCommodities(path string, out *CommodityCatalog) error {
	var defs []CommodityDef
	raw, err := readList(path, &defs)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	out.ByID = map[string]CommodityDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("commodities.json: empty id")
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("commodities.json: duplicate id %q", d.ID)
		}
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	return nil
}

func loadRegions(path string, out *RegionCatalog) error {
	var defs []RegionDef
	raw, err := readList(path, &defs)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	out.ByID = map[string]RegionDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("regions.json: empty id")
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("regions.json: duplicate id %q", d.ID)
		}
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	if len(out.Order) == 0 {
		return fmt.Errorf("regions.json: no regions")
	}
	return nil
}

func loadCurrencies(path string, out *CurrencyCatalog) error {
	var defs []CurrencyDef
	raw, err := readList(path, &defs)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	out.ByID = map[string]CurrencyDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("currencies.json: empty id")
		}
		if d.InitialPrice <= 0 || d.MinPrice <= 0 {
			return fmt.Errorf("currencies.json: %s prices must be > 0", d.ID)
		}
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	return nil
}

func loadRivals(path string, out *RivalCatalog) error {
	out.ByID = map[string]RivalDef{}
	var defs []RivalDef
	raw, err := readList(path, &defs)
	if err != nil {
		// A game without rivals is legal.
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("rivals.json: empty id")
		}
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	return nil
}

func loadSkills(path string, out *SkillCatalog) error {
	out.ByID = map[string]SkillDef{}
	var defs []SkillDef
	raw, err := readList(path, &defs)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("skills.json: empty id")
		}
		out.ByID[d.ID] = d
	}
	return nil
}

func loadEvents(dir string, out *EventCatalog) error {
	out.ByID = map[string]EventDef{}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if _, statErr := os.Stat(dir); statErr != nil && os.IsNotExist(statErr) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	sort.Strings(files)

	var concat bytes.Buffer
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		var ev EventDef
		if err := json.Unmarshal(b, &ev); err != nil {
			return fmt.Errorf("event %s: %w", filepath.Base(p), err)
		}
		if ev.ID == "" {
			return fmt.Errorf("event %s: missing id", filepath.Base(p))
		}
		switch ev.Kind {
		case "MARKET", "RISK", "OPPORTUNITY", "ECOSYSTEM":
		default:
			return fmt.Errorf("event %s: unknown kind %q", ev.ID, ev.Kind)
		}
		if d := ev.Duration; (d[0] != 0 || d[1] != 0) && (d[0] < 1 || d[1] < d[0]) {
			return fmt.Errorf("event %s: duration %v must be a positive range", ev.ID, d)
		}
		out.ByID[ev.ID] = ev
		out.Order = append(out.Order, ev.ID)
	}
	sort.SliceStable(out.Order, func(i, j int) bool {
		a, b := out.ByID[out.Order[i]], out.ByID[out.Order[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
	out.Digest = sha256Hex(concat.Bytes())
	return nil
}

// HasTier reports whether the event applies to commodities of the given tier.
// An empty tier list applies to all tiers.
func (e EventDef) HasTier(tier int) bool {
	if len(e.Tiers) == 0 {
		return true
	}
	for _, t := range e.Tiers {
		if t == tier {
			return true
		}
	}
	return false
}
