package domain

// Tier is the percentage-banded label shown to students alongside their score.
type Tier string

const (
	TierWinner    Tier = "winner"
	TierExcellent Tier = "excellent"
	TierVeryGood  Tier = "veryGood"
	TierApproved  Tier = "approved"
	TierBasic     Tier = "basic"
	TierFailed    Tier = "failed"
)

// Classification bundles the tier with its display message and icon.
type Classification struct {
	Tier    Tier   `json:"tier"`
	Message string `json:"message"`
	Icon    string `json:"icon"`
}

type tierBand struct {
	threshold float64
	tier      Tier
}

// Bands are checked descending; first match wins.
var tierBands = []tierBand{
	{100, TierWinner},
	{90, TierExcellent},
	{80, TierVeryGood},
	{70, TierApproved},
	{60, TierBasic},
}

var tierDisplay = map[Tier]Classification{
	TierWinner:    {TierWinner, "¡Puntaje perfecto! Dominas el tema", "🏆"},
	TierExcellent: {TierExcellent, "¡Excelente trabajo!", "🌟"},
	TierVeryGood:  {TierVeryGood, "¡Muy bien! Sigue así", "✨"},
	TierApproved:  {TierApproved, "Aprobado, puedes mejorar", "👍"},
	TierBasic:     {TierBasic, "Nivel básico, repasa el material", "📖"},
	TierFailed:    {TierFailed, "Sigue intentándolo, no te rindas", "💪"},
}

// ClassifyPercentage maps an accumulated percentage to its tier.
// Total over all float64 inputs; boundaries are inclusive (90.0 is excellent,
// 89.9 is veryGood).
func ClassifyPercentage(pct float64) Tier {
	for _, band := range tierBands {
		if pct >= band.threshold {
			return band.tier
		}
	}
	return TierFailed
}

// Classify returns the tier together with its motivational message and icon.
func Classify(pct float64) Classification {
	return tierDisplay[ClassifyPercentage(pct)]
}
