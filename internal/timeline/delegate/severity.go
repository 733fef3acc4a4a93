package delegate

import "caseline/internal/timeline/models"

// decisionSeverityOrder ranks violation response decisions from most to least
// severe. Used when a response carries several decisions or when several
// responses share the most recent response date.
var decisionSeverityOrder = []models.ResponseDecision{
	models.DecisionRevocation,
	models.DecisionShockIncarceration,
	models.DecisionTreatmentInPrison,
	models.DecisionWarrantIssued,
	models.DecisionPrivilegesRevoked,
	models.DecisionNewConditions,
	models.DecisionExtension,
	models.DecisionSuspension,
	models.DecisionCommunityService,
	models.DecisionDelayedAction,
	models.DecisionWarning,
	models.DecisionContinuance,
	models.DecisionUnfounded,
}

// MostSevereDecision returns the highest-ranked decision present, or "" when
// none of the decisions are ranked.
func MostSevereDecision(decisions []models.ResponseDecision) models.ResponseDecision {
	for _, ranked := range decisionSeverityOrder {
		for _, d := range decisions {
			if d == ranked {
				return ranked
			}
		}
	}
	return ""
}
