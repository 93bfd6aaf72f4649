package password

import "unicode/utf8"

// Strength buckets a score for display.
type Strength string

const (
	VeryWeak Strength = "very_weak"
	Weak     Strength = "weak"
	Fair     Strength = "fair"
	Good     Strength = "good"
	Strong   Strength = "strong"
)

const (
	lengthWeight     = 30
	lengthSaturation = 20
	classWeight      = 14
	threeClassBonus  = 10
	fourClassBonus   = 10
	maxScore         = 100
)

// Score rates a password in [0,100] from its length and character classes.
// It is Percent with the fractional length share dropped; the two always fall
// in the same StrengthOf bucket because the bucket edges are whole numbers.
func Score(password string) int {
	return int(Percent(password))
}

// Percent is the unrounded score the strength meter fills to. Length
// contributes proportionally up to 20 characters.
func Percent(password string) float64 {
	if password == "" {
		return 0
	}

	n := min(utf8.RuneCountInString(password), lengthSaturation)
	score := float64(n*lengthWeight) / lengthSaturation

	classCount := classify(password).count()
	bonus := classCount * classWeight
	if classCount >= 3 {
		bonus += threeClassBonus
	}
	if classCount == 4 {
		bonus += fourClassBonus
	}
	return min(score+float64(bonus), maxScore)
}

// StrengthOf maps a score to its bucket.
func StrengthOf(score int) Strength {
	switch {
	case score < 20:
		return VeryWeak
	case score < 40:
		return Weak
	case score < 60:
		return Fair
	case score < 80:
		return Good
	default:
		return Strong
	}
}

// Requirement is one line of the registration checklist.
type Requirement struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Met   bool   `json:"met"`
}

// Assessment is the full feedback for a candidate password.
type Assessment struct {
	Valid        bool          `json:"valid"`
	Violations   Violations    `json:"violations"`
	Messages     []string      `json:"messages"`
	Score        int           `json:"score"`
	Percent      float64       `json:"percent"`
	Strength     Strength      `json:"strength"`
	Requirements []Requirement `json:"requirements"`
}

// Assess bundles violations, score, strength and the requirement checklist.
// Valid is false for an empty password.
func Assess(password string) Assessment {
	violations := Evaluate(password)
	if violations == nil {
		violations = Violations{}
	}
	c := classify(password)
	score := Score(password)
	return Assessment{
		Valid:      password != "" && len(violations) == 0,
		Violations: violations,
		Messages:   violations.Messages(),
		Score:      score,
		Percent:    Percent(password),
		Strength:   StrengthOf(score),
		Requirements: []Requirement{
			{Key: "min_length", Label: "At least 8 characters", Met: utf8.RuneCountInString(password) >= MinLength},
			{Key: "uppercase", Label: "One uppercase letter", Met: c.upper},
			{Key: "lowercase", Label: "One lowercase letter", Met: c.lower},
			{Key: "digit", Label: "One number", Met: c.digit},
			{Key: "special", Label: "One special character", Met: c.special},
		},
	}
}
