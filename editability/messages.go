package editability

const (
	genericLockedReason  = "This field cannot be edited at the current stage of the competition."
	genericWarnMessage   = "This competition is live. Changes to this field are visible to voters immediately."
	adminControlledLabel = "is set by the platform administrator and cannot be changed by hosts."
)

// Messages holds the human-readable explanations rendered next to locked or warned fields.
type Messages struct {
	AlwaysLocked  map[string]string
	StageLocked   map[Stage]string
	FieldWarnings map[string]string
	Generic       string
	GenericWarn   string
}

// DefaultMessages returns the explanations used by the settings editor.
func DefaultMessages() Messages {
	return Messages{
		AlwaysLocked: map[string]string{
			"name":               "The competition name " + adminControlledLabel,
			"city":               "The city " + adminControlledLabel,
			"season":             "The season " + adminControlledLabel,
			"slug":               "The public URL " + adminControlledLabel,
			"category":           "The category " + adminControlledLabel,
			"demographic":        "The demographic " + adminControlledLabel,
			"minimum_prize":      "The minimum prize " + adminControlledLabel,
			"number_of_winners":  "The number of winners " + adminControlledLabel,
			"price_per_vote":     "The price per vote " + adminControlledLabel,
			"eligibility_radius": "The eligibility radius " + adminControlledLabel,
			"min_contestants":    "The minimum contestant count " + adminControlledLabel,
			"max_contestants":    "The maximum contestant count " + adminControlledLabel,
		},
		StageLocked: map[Stage]string{
			StageDraft:     "This field is only available once the competition has ended.",
			StagePublish:   "This field is only available once the competition has ended.",
			StageLive:      "Voting is live. This field is locked to keep the competition fair for contestants and voters.",
			StageCompleted: "This competition has ended. Its settings are now read-only.",
		},
		FieldWarnings: map[string]string{
			"description":       "Voting is live. Updating the description changes what voters read right now.",
			"traits":            "Voting is live. Changing the traits list changes how contestants are presented to voters.",
			"theme_primary":     "Voting is live. Changing the primary color restyles the public competition page for every voter.",
			"theme_secondary":   "Voting is live. Changing the secondary color restyles the public competition page for every voter.",
			"nomination_end":    "Voting is live. Moving the nomination deadline may affect contestants who are still being nominated.",
			"voting_end":        "Voting is live. Moving the voting deadline changes when the competition closes for all voters.",
			"finale_date":       "Voting is live. Contestants and sponsors may already have planned around the current finale date.",
			"double_vote_dates": "Voting is live. Changing double-vote days alters how many votes a free vote is worth.",
			"rules":             "Voting is live. Changing the rules mid-competition should be announced to contestants.",
		},
		Generic:     genericLockedReason,
		GenericWarn: genericWarnMessage,
	}
}
