package patterns

import "ChartCore/internal/domain/models"

type patternInfo struct {
	significance models.Significance
	keywords     []string
}

// typeOrder is the canonical order used to break ties in summaries.
var typeOrder = []string{
	models.GrandTrine,
	models.TSquare,
	models.Yod,
	models.GrandCross,
	models.Kite,
	models.MysticRectangle,
	models.Cradle,
	models.Boomerang,
}

var catalog = map[string]patternInfo{
	models.GrandTrine: {
		significance: models.SignificanceMajor,
		keywords:     []string{"harmony", "talent", "ease", "protection"},
	},
	models.TSquare: {
		significance: models.SignificanceMajor,
		keywords:     []string{"tension", "drive", "challenge", "ambition"},
	},
	models.Yod: {
		significance: models.SignificanceMajor,
		keywords:     []string{"destiny", "adjustment", "mission", "crisis"},
	},
	models.GrandCross: {
		significance: models.SignificanceMajor,
		keywords:     []string{"tension", "endurance", "conflict", "balance"},
	},
	models.Kite: {
		significance: models.SignificanceModerate,
		keywords:     []string{"talent", "focus", "achievement", "harmony"},
	},
	models.MysticRectangle: {
		significance: models.SignificanceModerate,
		keywords:     []string{"integration", "balance", "practicality", "harmony"},
	},
	models.Cradle: {
		significance: models.SignificanceModerate,
		keywords:     []string{"support", "talent", "nurturing", "ease"},
	},
	models.Boomerang: {
		significance: models.SignificanceModerate,
		keywords:     []string{"release", "destiny", "turning_point", "adjustment"},
	},
}

func typeRank(t string) int {
	for i, name := range typeOrder {
		if name == t {
			return i
		}
	}
	return len(typeOrder)
}

func newPattern(patternType string, planets []string, roles map[string]string, supporting []models.AspectMatch) models.Pattern {
	info, ok := catalog[patternType]
	if !ok {
		info = patternInfo{significance: models.SignificanceMinor}
	}
	var sum float64
	for _, am := range supporting {
		sum += am.Delta
	}
	var avg float64
	if len(supporting) > 0 {
		avg = sum / float64(len(supporting))
	}
	return models.Pattern{
		Type:              patternType,
		Planets:           planets,
		Roles:             roles,
		Significance:      info.significance,
		SupportingAspects: supporting,
		AverageOrb:        avg,
		Keywords:          append([]string(nil), info.keywords...),
	}
}
