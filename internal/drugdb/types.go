package drugdb

import "github.com/Nayana519/PulseGuard/internal/interaction"

// Response shapes mirror only the fields read. Absent fields decode to zero values.

type rxcuiResponse struct {
	IDGroup struct {
		RxNormID []string `json:"rxnormId"`
	} `json:"idGroup"`
}

type suggestionResponse struct {
	SuggestionGroup struct {
		SuggestionList struct {
			Suggestion []string `json:"suggestion"`
		} `json:"suggestionList"`
	} `json:"suggestionGroup"`
}

type interactionListResponse struct {
	FullInteractionTypeGroup []struct {
		SourceName          string `json:"sourceName"`
		FullInteractionType []struct {
			InteractionPair []struct {
				Severity           string `json:"severity"`
				Description        string `json:"description"`
				InteractionConcept []struct {
					MinConceptItem struct {
						Name string `json:"name"`
					} `json:"minConceptItem"`
				} `json:"interactionConcept"`
			} `json:"interactionPair"`
		} `json:"fullInteractionType"`
	} `json:"fullInteractionTypeGroup"`
}

func (r *interactionListResponse) records() []interaction.RawInteraction {
	var out []interaction.RawInteraction
	for _, group := range r.FullInteractionTypeGroup {
		for _, itype := range group.FullInteractionType {
			for _, pair := range itype.InteractionPair {
				drugs := make([]string, 0, len(pair.InteractionConcept))
				for _, concept := range pair.InteractionConcept {
					drugs = append(drugs, concept.MinConceptItem.Name)
				}
				out = append(out, interaction.RawInteraction{
					Severity:    pair.Severity,
					Description: pair.Description,
					Drugs:       drugs,
					Source:      group.SourceName,
				})
			}
		}
	}
	return out
}
