package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable the engine reads. It is plain data and can be
// loaded from YAML; zero-valued sections fall back to Defaults.
type Config struct {
	BaseWeights          Weights           `yaml:"base_weights" json:"base_weights"`
	WeightFloor          float64           `yaml:"weight_floor" json:"weight_floor"`
	NeutralScore         float64           `yaml:"neutral_score" json:"neutral_score"`
	TopFactorCount       int               `yaml:"top_factor_count" json:"top_factor_count"`
	CompletenessBonusMax float64           `yaml:"completeness_bonus_max" json:"completeness_bonus_max"`
	Premium              bool              `yaml:"premium" json:"premium"`
	KeywordInference     *bool             `yaml:"keyword_inference,omitempty" json:"keyword_inference,omitempty"`
	Quality              QualityThresholds `yaml:"quality" json:"quality"`
	DecayTiers           []DecayTier       `yaml:"decay_tiers" json:"decay_tiers"`
	SummerRanges         map[string]Range  `yaml:"summer_ranges" json:"summer_ranges"`
	WinterRanges         map[string]Range  `yaml:"winter_ranges" json:"winter_ranges"`
	AffordabilityBands   []Band            `yaml:"affordability_bands" json:"affordability_bands"`
	TaxBrackets          TaxBrackets       `yaml:"tax_brackets" json:"tax_brackets"`
	Ladders              Ladders           `yaml:"ladders" json:"ladders"`
}

// QualityThresholds are the lower bounds of each quality tier.
type QualityThresholds struct {
	Excellent float64 `yaml:"excellent" json:"excellent"`
	VeryGood  float64 `yaml:"very_good" json:"very_good"`
	Good      float64 `yaml:"good" json:"good"`
	Fair      float64 `yaml:"fair" json:"fair"`
}

// Range is an inclusive temperature range in °C.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// DecayTier awards Percent when the distance outside a range is at most MaxDistance.
type DecayTier struct {
	MaxDistance float64 `yaml:"max_distance" json:"max_distance"`
	Percent     float64 `yaml:"percent" json:"percent"`
}

// Band awards Points when budget/cost is at least MinRatio.
type Band struct {
	MinRatio float64 `yaml:"min_ratio" json:"min_ratio"`
	Points   float64 `yaml:"points" json:"points"`
}

// TaxBrackets holds ascending rate thresholds (percent) per tax kind.
// A rate at or below the first threshold scores 5, past the last scores 1.
type TaxBrackets struct {
	Income   []float64 `yaml:"income" json:"income"`
	Property []float64 `yaml:"property" json:"property"`
	Sales    []float64 `yaml:"sales" json:"sales"`
}

// Step is one rung of a quality ladder.
type Step struct {
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Percent   float64 `yaml:"percent" json:"percent"`
}

// Ladder maps a 0-10 rating to a percentage. A linear ladder returns
// rating×10; otherwise the first step whose threshold the rating reaches
// applies, and Floor applies below every step.
type Ladder struct {
	Linear bool    `yaml:"linear,omitempty" json:"linear,omitempty"`
	Steps  []Step  `yaml:"steps,omitempty" json:"steps,omitempty"`
	Floor  float64 `yaml:"floor" json:"floor"`
}

// Ladders holds one ladder per quality requirement.
type Ladders struct {
	Basic      Ladder `yaml:"basic" json:"basic"`
	Functional Ladder `yaml:"functional" json:"functional"`
	Good       Ladder `yaml:"good" json:"good"`
}

// Defaults returns the default engine configuration.
func Defaults() Config {
	inference := true
	return Config{
		BaseWeights:          AdaptiveWeights(),
		WeightFloor:          0.05,
		NeutralScore:         50,
		TopFactorCount:       5,
		CompletenessBonusMax: 5,
		KeywordInference:     &inference,
		Quality: QualityThresholds{
			Excellent: 85,
			VeryGood:  70,
			Good:      55,
			Fair:      40,
		},
		DecayTiers: []DecayTier{
			{MaxDistance: 2, Percent: 80},
			{MaxDistance: 5, Percent: 50},
			{MaxDistance: 10, Percent: 20},
		},
		SummerRanges: map[string]Range{
			"mild": {Min: 15, Max: 24},
			"warm": {Min: 22, Max: 32},
			"hot":  {Min: 28, Max: 50},
		},
		WinterRanges: map[string]Range{
			"cold": {Min: -30, Max: 5},
			"cool": {Min: 3, Max: 15},
			"mild": {Min: 12, Max: 30},
		},
		AffordabilityBands: []Band{
			{MinRatio: 1.5, Points: 40},
			{MinRatio: 1.2, Points: 34},
			{MinRatio: 1.0, Points: 28},
			{MinRatio: 0.85, Points: 16},
			{MinRatio: 0.7, Points: 6},
		},
		TaxBrackets: TaxBrackets{
			Income:   []float64{10, 20, 30, 40},
			Property: []float64{1, 2, 3, 4},
			Sales:    []float64{10, 17, 22, 27},
		},
		Ladders: GradedLadders(),
	}
}

// GradedLadders are the default quality ladders.
func GradedLadders() Ladders {
	return Ladders{
		Basic: Ladder{
			Steps: []Step{{4, 100}, {3, 70}, {2, 40}},
			Floor: 15,
		},
		Functional: Ladder{Linear: true},
		Good: Ladder{
			Steps: []Step{{7, 100}, {6, 85}, {5, 65}, {4, 40}},
			Floor: 15,
		},
	}
}

// StrictLadders demand more of a town before awarding full points for the
// "good" requirement.
func StrictLadders() Ladders {
	l := GradedLadders()
	l.Good = Ladder{
		Steps: []Step{{9, 100}, {8, 80}, {7, 60}, {6, 40}, {5, 20}},
	}
	return l
}

// InferenceEnabled reports whether description keyword inference is on.
func (c *Config) InferenceEnabled() bool {
	return c.KeywordInference == nil || *c.KeywordInference
}

// Inferrer returns the climate inferrer selected by the config.
func (c *Config) Inferrer() ClimateInferrer {
	if c.InferenceEnabled() {
		return KeywordInferrer{}
	}
	return NoInference{}
}

// Version returns a short digest of the config, used in cache keys so a
// tuning change never serves stale matches.
func (c *Config) Version() string {
	data, err := json.Marshal(c)
	if err != nil {
		return "unknown"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:6])
}

// withDefaults fills zero-valued sections from Defaults.
func (c Config) withDefaults() Config {
	d := Defaults()
	if len(c.BaseWeights) == 0 {
		c.BaseWeights = d.BaseWeights
	} else {
		merged := make(Weights, len(Categories))
		for _, cat := range Categories {
			merged[cat] = d.BaseWeights[cat]
			if w, ok := c.BaseWeights[cat]; ok && w >= 0 {
				merged[cat] = w
			}
		}
		c.BaseWeights = merged
	}
	if c.WeightFloor <= 0 || c.WeightFloor*float64(len(Categories)) > 1 {
		c.WeightFloor = d.WeightFloor
	}
	if c.NeutralScore <= 0 || c.NeutralScore > 100 {
		c.NeutralScore = d.NeutralScore
	}
	if c.TopFactorCount <= 0 {
		c.TopFactorCount = d.TopFactorCount
	}
	if c.CompletenessBonusMax < 0 {
		c.CompletenessBonusMax = 0
	}
	if c.Quality == (QualityThresholds{}) {
		c.Quality = d.Quality
	}
	if len(c.DecayTiers) == 0 {
		c.DecayTiers = d.DecayTiers
	}
	if len(c.SummerRanges) == 0 {
		c.SummerRanges = d.SummerRanges
	}
	if len(c.WinterRanges) == 0 {
		c.WinterRanges = d.WinterRanges
	}
	if len(c.AffordabilityBands) == 0 {
		c.AffordabilityBands = d.AffordabilityBands
	}
	if len(c.TaxBrackets.Income) == 0 {
		c.TaxBrackets.Income = d.TaxBrackets.Income
	}
	if len(c.TaxBrackets.Property) == 0 {
		c.TaxBrackets.Property = d.TaxBrackets.Property
	}
	if len(c.TaxBrackets.Sales) == 0 {
		c.TaxBrackets.Sales = d.TaxBrackets.Sales
	}
	c.Ladders.Basic = ladderOrDefault(c.Ladders.Basic, d.Ladders.Basic)
	c.Ladders.Functional = ladderOrDefault(c.Ladders.Functional, d.Ladders.Functional)
	c.Ladders.Good = ladderOrDefault(c.Ladders.Good, d.Ladders.Good)
	return c
}

func ladderOrDefault(l, d Ladder) Ladder {
	if !l.Linear && len(l.Steps) == 0 {
		return d
	}
	return l
}

// ParseConfig decodes YAML on top of Defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing scoring config: %w", err)
	}
	return cfg.withDefaults(), nil
}

// LoadConfig reads a scoring config from a YAML file.
// If the file doesn't exist, Defaults is returned.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return Config{}, fmt.Errorf("reading scoring config: %w", err)
	}
	return ParseConfig(data)
}
