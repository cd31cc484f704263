package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/challengeclub/competition-server-go/internal/errors"
	"github.com/challengeclub/competition-server-go/internal/model"
	"github.com/challengeclub/competition-server-go/internal/service"
	"github.com/challengeclub/competition-server-go/internal/util"
)

// Step is one question in a flow. Validate normalizes the user's answer
// into the stored field value or returns a VALIDATION_ERROR to re-prompt.
// PromptFn, when set, renders the question from current data instead of
// the static Prompt.
type Step struct {
	State    model.FlowState
	Field    string
	Prompt   string
	PromptFn func(ctx context.Context, e *Engine, fields map[string]string) (string, error)
	Validate func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error)
}

// Flow is a full conversation: ordered steps, then an implicit confirm
// step that renders Summary and runs Commit on the confirm token.
// NoConfirm flows skip the confirm step and commit right after the last
// answer validates; their Summary is never rendered.
type Flow struct {
	Kind         model.FlowKind
	AdminOnly    bool
	NeedsActive  bool
	ChangeOnly   bool
	StandardOnly bool
	NoConfirm    bool
	Steps        []Step
	Summary      func(fields map[string]string) string
	Commit       func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error)
}

func (f *Flow) stepIndex(state model.FlowState) int {
	for i, step := range f.Steps {
		if step.State == state {
			return i
		}
	}
	return -1
}

var flows = map[model.FlowKind]*Flow{
	model.FlowRegister:        registerFlow,
	model.FlowAddScore:        addScoreFlow,
	model.FlowRemoveScore:     removeScoreFlow,
	model.FlowEditScore:       editScoreFlow,
	model.FlowStartChallenge:  startChallengeFlow,
	model.FlowEditChallenge:   editChallengeFlow,
	model.FlowRemoveChallenge: removeChallengeFlow,
	model.FlowAddAdmin:        addAdminFlow,
	model.FlowRemoveAdmin:     removeAdminFlow,
	model.FlowRemoveEntry:     removeEntryFlow,
	model.FlowNewSuggestion:   newSuggestionFlow,
	model.FlowSetBaseline:     setBaselineFlow,
	model.FlowUpdateValue:     updateValueFlow,
}

var registerFlow = &Flow{
	Kind:      model.FlowRegister,
	NoConfirm: true,
	Steps: []Step{
		{
			State:  model.StateUsernameInput,
			Field:  "username",
			Prompt: "What name do you want on the leaderboard? (3-20 characters)",
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				if !util.IsValidRegisteredUsername(input) {
					return "", apperrors.Validation("Usernames are 3-20 characters: letters, numbers, dots, dashes and underscores.")
				}
				existing, err := e.users.FindByRegisteredUsername(ctx, input)
				if err != nil {
					return "", apperrors.Database(err)
				}
				if existing != nil && existing.ID != userID {
					return "", apperrors.Validation("That username is taken. Pick another one.")
				}
				return input, nil
			},
		},
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		if err := e.users.Register(ctx, userID, fields["username"]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Welcome, %s! You're all set.", fields["username"]), nil
	},
}

var addScoreFlow = &Flow{
	Kind:         model.FlowAddScore,
	NeedsActive:  true,
	StandardOnly: true,
	Steps: []Step{
		{
			State:    model.StateDateInput,
			Field:    "dates",
			Prompt:   "Which days of this month are the points for? (like 5, 5,6,7 or 6-10)",
			Validate: validateDates,
		},
		{
			State:  model.StatePointsInput,
			Field:  "points",
			Prompt: "How many points in total?",
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				points, err := ParsePoints(input)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%d", points), nil
			},
		},
	},
	Summary: func(fields map[string]string) string {
		return fmt.Sprintf("Add %s points spread over days %s?", fields["points"], humanDates(fields["dates"]))
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		challenge, err := e.lifecycle.RequireActiveChallenge(ctx)
		if err != nil {
			return "", err
		}
		dates, err := splitDates(fields["dates"], e.loc)
		if err != nil {
			return "", apperrors.Database(err)
		}
		points, _ := ParsePoints(fields["points"])
		slots, err := e.ledger.ApplyAdd(ctx, challenge, userID, points, dates)
		if err != nil {
			return "", err
		}

		var b strings.Builder
		b.WriteString("Points recorded:\n")
		for _, slot := range slots {
			fmt.Fprintf(&b, "%s: +%d\n", slot.Date.Format("Jan 2"), slot.Points)
		}
		total, err := e.ledger.UserTotal(ctx, challenge.ID, userID)
		if err == nil {
			fmt.Fprintf(&b, "\nYour total is now %d points.", total)
		}
		return b.String(), nil
	},
}

var removeScoreFlow = &Flow{
	Kind:         model.FlowRemoveScore,
	NeedsActive:  true,
	StandardOnly: true,
	Steps: []Step{
		{
			State:    model.StateDateInput,
			Field:    "date",
			Prompt:   "Which day of this month should be cleared?",
			Validate: validateSingleDate,
		},
	},
	Summary: func(fields map[string]string) string {
		return fmt.Sprintf("Remove all your points for %s?", humanDates(fields["date"]))
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		challenge, err := e.lifecycle.RequireActiveChallenge(ctx)
		if err != nil {
			return "", err
		}
		date, err := time.ParseInLocation(dateLayout, fields["date"], e.loc)
		if err != nil {
			return "", apperrors.Database(err)
		}
		if err := e.ledger.ApplyRemove(ctx, challenge, userID, date); err != nil {
			return "", err
		}
		return fmt.Sprintf("Points for %s removed.", date.Format("Jan 2")), nil
	},
}

var editScoreFlow = &Flow{
	Kind:         model.FlowEditScore,
	NeedsActive:  true,
	StandardOnly: true,
	Steps: []Step{
		{
			State:    model.StateDateInput,
			Field:    "date",
			Prompt:   "Which day of this month do you want to correct?",
			Validate: validateSingleDate,
		},
		{
			State:  model.StateNewPointsInput,
			Field:  "new_points",
			Prompt: "What should the total for that day be?",
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				points, err := ParsePoints(input)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%d", points), nil
			},
		},
	},
	Summary: func(fields map[string]string) string {
		return fmt.Sprintf("Set your points for %s to %s?", humanDates(fields["date"]), fields["new_points"])
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		challenge, err := e.lifecycle.RequireActiveChallenge(ctx)
		if err != nil {
			return "", err
		}
		date, err := time.ParseInLocation(dateLayout, fields["date"], e.loc)
		if err != nil {
			return "", apperrors.Database(err)
		}
		points, _ := ParsePoints(fields["new_points"])
		if err := e.ledger.ApplyEdit(ctx, challenge, userID, date, points); err != nil {
			return "", err
		}
		return fmt.Sprintf("Points for %s set to %d.", date.Format("Jan 2"), points), nil
	},
}

var startChallengeFlow = &Flow{
	Kind:      model.FlowStartChallenge,
	AdminOnly: true,
	Steps: []Step{
		{
			State:  model.StateDescription,
			Field:  "description",
			Prompt: fmt.Sprintf("Describe the challenge (%d-%d characters), or #<number> to promote an open suggestion.", model.ChallengeDescriptionMin, model.ChallengeDescriptionMax),
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				if n, ok := parseSuggestionRef(input); ok {
					open, err := e.lifecycle.OpenSuggestions(ctx)
					if err != nil {
						return "", apperrors.Database(err)
					}
					if n > len(open) {
						return "", apperrors.Validation("No open suggestion has that number. See /vote for the list.")
					}
					suggestion := open[n-1]
					fields["suggestion_id"] = strconv.FormatInt(suggestion.ID, 10)
					fields["scoring"] = suggestion.ScoringSystem
					return suggestion.Description, nil
				}
				if err := ValidateLength(input, model.ChallengeDescriptionMin, model.ChallengeDescriptionMax, "description"); err != nil {
					return "", err
				}
				return input, nil
			},
		},
		{
			State:  model.StateKind,
			Field:  "kind",
			Prompt: "Is this a standard points challenge or a change challenge? (standard/change)",
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				switch strings.ToLower(input) {
				case string(model.ChallengeKindStandard):
					return string(model.ChallengeKindStandard), nil
				case string(model.ChallengeKindChange):
					return string(model.ChallengeKindChange), nil
				default:
					return "", apperrors.Validation("Answer standard or change.")
				}
			},
		},
		{
			State:  model.StateScoringDescription,
			Field:  "scoring",
			Prompt: fmt.Sprintf("How are points earned? (%d-%d characters)", model.ChallengeScoringMin, model.ChallengeScoringMax),
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				if err := ValidateLength(input, model.ChallengeScoringMin, model.ChallengeScoringMax, "scoring description"); err != nil {
					return "", err
				}
				return input, nil
			},
		},
		{
			State:  model.StatePeriod,
			Field:  "period",
			Prompt: "When does it run? (DD/MM/YYYY to DD/MM/YYYY)",
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				start, end, err := ParsePeriod(input, e.loc)
				if err != nil {
					return "", err
				}
				if !start.Before(end) {
					return "", apperrors.Validation("The end date must be after the start date.")
				}
				return start.Format(dateLayout) + "|" + end.Format(dateLayout), nil
			},
		},
	},
	Summary: func(fields map[string]string) string {
		parts := strings.SplitN(fields["period"], "|", 2)
		return fmt.Sprintf("Start this challenge?\n\n%s\n\nKind: %s\nScoring: %s\nPeriod: %s to %s",
			fields["description"], fields["kind"], fields["scoring"], parts[0], parts[1])
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		parts := strings.SplitN(fields["period"], "|", 2)
		start, err := time.ParseInLocation(dateLayout, parts[0], e.loc)
		if err != nil {
			return "", apperrors.Database(err)
		}
		end, err := time.ParseInLocation(dateLayout, parts[1], e.loc)
		if err != nil {
			return "", apperrors.Database(err)
		}
		input := service.CreateChallengeInput{
			Description:   fields["description"],
			ScoringSystem: fields["scoring"],
			Kind:          model.ChallengeKind(fields["kind"]),
			StartDate:     start,
			EndDate:       end,
			CreatedBy:     userID,
		}
		if raw := fields["suggestion_id"]; raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return "", apperrors.Database(err)
			}
			input.SuggestionID = &id
		}
		challenge, err := e.lifecycle.CreateChallenge(ctx, input)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Challenge created! %s", service.StatusLine(challenge, time.Now().In(e.loc))), nil
	},
}

var editableChallengeFields = map[string]string{
	"1": "description",
	"2": "scoring",
	"3": "start date",
	"4": "end date",
}

var editChallengeFlow = &Flow{
	Kind:      model.FlowEditChallenge,
	AdminOnly: true,
	Steps: []Step{
		{
			State: model.StateChallengeSelect,
			Field: "challenge_id",
			PromptFn: func(ctx context.Context, e *Engine, fields map[string]string) (string, error) {
				return challengeListing(ctx, e, "Which challenge needs a fix?\n\n")
			},
			Validate: validateChallengeSelection,
		},
		{
			State:  model.StateFieldSelect,
			Field:  "field",
			Prompt: "What should change?\n1. description\n2. scoring\n3. start date\n4. end date",
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				name, ok := editableChallengeFields[strings.TrimSpace(input)]
				if !ok {
					return "", apperrors.Validation("Pick a number between 1 and 4.")
				}
				return name, nil
			},
		},
		{
			State: model.StateNewValue,
			Field: "value",
			PromptFn: func(ctx context.Context, e *Engine, fields map[string]string) (string, error) {
				switch fields["field"] {
				case "description":
					return fmt.Sprintf("What's the new description? (%d-%d characters)", model.ChallengeDescriptionMin, model.ChallengeDescriptionMax), nil
				case "scoring":
					return fmt.Sprintf("How are points earned now? (%d-%d characters)", model.ChallengeScoringMin, model.ChallengeScoringMax), nil
				default:
					return "What's the new date? (DD/MM/YYYY)", nil
				}
			},
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				switch fields["field"] {
				case "description":
					if err := ValidateLength(input, model.ChallengeDescriptionMin, model.ChallengeDescriptionMax, "description"); err != nil {
						return "", err
					}
					return strings.TrimSpace(input), nil
				case "scoring":
					if err := ValidateLength(input, model.ChallengeScoringMin, model.ChallengeScoringMax, "scoring description"); err != nil {
						return "", err
					}
					return strings.TrimSpace(input), nil
				default:
					date, err := time.ParseInLocation(periodLayout, strings.TrimSpace(input), e.loc)
					if err != nil {
						return "", apperrors.Validation(fmt.Sprintf("%q isn't a valid date, use DD/MM/YYYY.", strings.TrimSpace(input)))
					}
					return date.Format(dateLayout), nil
				}
			},
		},
	},
	Summary: func(fields map[string]string) string {
		return fmt.Sprintf("Change the %s of %q to %q?", fields["field"], fields["challenge_description"], fields["value"])
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		id, err := strconv.ParseInt(fields["challenge_id"], 10, 64)
		if err != nil {
			return "", apperrors.Database(err)
		}
		var input service.EditChallengeInput
		value := fields["value"]
		switch fields["field"] {
		case "description":
			input.Description = &value
		case "scoring":
			input.ScoringSystem = &value
		default:
			date, err := time.ParseInLocation(dateLayout, value, e.loc)
			if err != nil {
				return "", apperrors.Database(err)
			}
			if fields["field"] == "start date" {
				input.StartDate = &date
			} else {
				input.EndDate = &date
			}
		}
		if _, err := e.lifecycle.EditChallenge(ctx, userID, id, input); err != nil {
			return "", err
		}
		return "Challenge updated.", nil
	},
}

var removeChallengeFlow = &Flow{
	Kind:      model.FlowRemoveChallenge,
	AdminOnly: true,
	Steps: []Step{
		{
			State: model.StateChallengeSelect,
			Field: "challenge_id",
			PromptFn: func(ctx context.Context, e *Engine, fields map[string]string) (string, error) {
				return challengeListing(ctx, e, "Which challenge should be removed? All its scores and baselines go with it.\n\n")
			},
			Validate: validateChallengeSelection,
		},
	},
	Summary: func(fields map[string]string) string {
		return fmt.Sprintf("Permanently remove %q with all its scores, baselines and reminders?", fields["challenge_description"])
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		id, err := strconv.ParseInt(fields["challenge_id"], 10, 64)
		if err != nil {
			return "", apperrors.Database(err)
		}
		challenge, err := e.lifecycle.RemoveChallenge(ctx, userID, id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed %q for good.", clip(challenge.Description, 50)), nil
	},
}

var addAdminFlow = &Flow{
	Kind:      model.FlowAddAdmin,
	AdminOnly: true,
	Steps: []Step{
		{
			State:    model.StateUsernameInput,
			Field:    "username",
			Prompt:   "Which registered user should become an admin?",
			Validate: validateKnownUsername,
		},
	},
	Summary: func(fields map[string]string) string {
		return fmt.Sprintf("Make %s an admin?", fields["username"])
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		user, err := e.perms.AddAdmin(ctx, userID, fields["username"])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is now an admin.", user.DisplayName()), nil
	},
}

var removeAdminFlow = &Flow{
	Kind:      model.FlowRemoveAdmin,
	AdminOnly: true,
	Steps: []Step{
		{
			State:    model.StateUsernameInput,
			Field:    "username",
			Prompt:   "Which admin should lose their rights?",
			Validate: validateKnownUsername,
		},
	},
	Summary: func(fields map[string]string) string {
		return fmt.Sprintf("Remove %s as admin?", fields["username"])
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		user, err := e.perms.RemoveAdmin(ctx, userID, fields["username"])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is no longer an admin.", user.DisplayName()), nil
	},
}

var removeEntryFlow = &Flow{
	Kind:        model.FlowRemoveEntry,
	AdminOnly:   true,
	NeedsActive: true,
	Steps: []Step{
		{
			State:    model.StateUsernameInput,
			Field:    "username",
			Prompt:   "Whose entries should be removed from the current challenge?",
			Validate: validateKnownUsername,
		},
	},
	Summary: func(fields map[string]string) string {
		return fmt.Sprintf("Remove all of %s's entries from the current challenge?", fields["username"])
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		challenge, err := e.lifecycle.RequireActiveChallenge(ctx)
		if err != nil {
			return "", err
		}
		target, err := e.users.FindByRegisteredUsername(ctx, fields["username"])
		if err != nil {
			return "", apperrors.Database(err)
		}
		if target == nil {
			return "", apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("No registered user named %q.", fields["username"]))
		}
		rows, err := e.ledger.RemoveAllForUser(ctx, challenge, userID, target.ID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed %d entries for %s.", rows, target.DisplayName()), nil
	},
}

var newSuggestionFlow = &Flow{
	Kind: model.FlowNewSuggestion,
	Steps: []Step{
		{
			State:  model.StateDescription,
			Field:  "description",
			Prompt: fmt.Sprintf("Describe your challenge idea. (%d-%d characters)", model.SuggestionDescriptionMin, model.SuggestionDescriptionMax),
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				if err := ValidateLength(input, model.SuggestionDescriptionMin, model.SuggestionDescriptionMax, "description"); err != nil {
					return "", err
				}
				return input, nil
			},
		},
		{
			State:  model.StateScoringDescription,
			Field:  "scoring",
			Prompt: fmt.Sprintf("How would points be earned? (%d-%d characters)", model.SuggestionScoringMin, model.SuggestionScoringMax),
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				if err := ValidateLength(input, model.SuggestionScoringMin, model.SuggestionScoringMax, "scoring description"); err != nil {
					return "", err
				}
				return input, nil
			},
		},
	},
	Summary: func(fields map[string]string) string {
		return fmt.Sprintf("Suggest this challenge?\n\n%s\n\nScoring: %s", fields["description"], fields["scoring"])
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		if _, err := e.lifecycle.RecordSuggestion(ctx, userID, strings.TrimSpace(fields["description"]), strings.TrimSpace(fields["scoring"])); err != nil {
			return "", err
		}
		return "Suggestion saved! Others can vote for it with /vote.", nil
	},
}

var setBaselineFlow = &Flow{
	Kind:        model.FlowSetBaseline,
	NeedsActive: true,
	ChangeOnly:  true,
	NoConfirm:   true,
	Steps: []Step{
		{
			State:  model.StateValueInput,
			Field:  "value",
			Prompt: "What's your starting value?",
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				value, err := ParseValue(input)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%g", value), nil
			},
		},
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		challenge, err := e.lifecycle.RequireActiveChallenge(ctx)
		if err != nil {
			return "", err
		}
		value, _ := ParseValue(fields["value"])
		if err := e.lifecycle.SetBaseline(ctx, challenge, userID, value); err != nil {
			return "", err
		}
		return fmt.Sprintf("Starting value set to %s. Good luck!", fields["value"]), nil
	},
}

var updateValueFlow = &Flow{
	Kind:        model.FlowUpdateValue,
	NeedsActive: true,
	ChangeOnly:  true,
	NoConfirm:   true,
	Steps: []Step{
		{
			State:  model.StateValueInput,
			Field:  "value",
			Prompt: "What's your current value?",
			Validate: func(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
				value, err := ParseValue(input)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%g", value), nil
			},
		},
	},
	Commit: func(ctx context.Context, e *Engine, userID string, fields map[string]string) (string, error) {
		challenge, err := e.lifecycle.RequireActiveChallenge(ctx)
		if err != nil {
			return "", err
		}
		value, _ := ParseValue(fields["value"])
		baseline, err := e.lifecycle.UpdateValue(ctx, challenge, userID, value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Recorded. You're at %+.1f%% from your starting value.", baseline.PercentChange()), nil
	},
}

func validateDates(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
	challenge, err := e.lifecycle.RequireActiveChallenge(ctx)
	if err != nil {
		return "", err
	}
	dates, err := ParseDateTokens(input, time.Now().In(e.loc), challenge)
	if err != nil {
		return "", err
	}
	return joinDates(dates), nil
}

func validateSingleDate(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
	challenge, err := e.lifecycle.RequireActiveChallenge(ctx)
	if err != nil {
		return "", err
	}
	dates, err := ParseDateTokens(input, time.Now().In(e.loc), challenge)
	if err != nil {
		return "", err
	}
	if len(dates) != 1 {
		return "", apperrors.Validation("Give exactly one day.")
	}
	return dates[0].Format(dateLayout), nil
}

// challengeListing renders the most recent challenges as a numbered picker.
func challengeListing(ctx context.Context, e *Engine, header string) (string, error) {
	challenges, err := e.lifecycle.RecentChallenges(ctx)
	if err != nil {
		return "", err
	}
	if len(challenges) == 0 {
		return "", apperrors.New(apperrors.ErrCodeNotFound, "There are no challenges yet.")
	}
	var b strings.Builder
	b.WriteString(header)
	for i, c := range challenges {
		fmt.Fprintf(&b, "%d. %s (%s to %s, %s)\n", i+1, clip(c.Description, 50),
			c.StartDate.Format(periodLayout), c.EndDate.Format(periodLayout), c.Status)
	}
	b.WriteString("\nReply with a number.")
	return b.String(), nil
}

func validateChallengeSelection(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return "", apperrors.Validation("Reply with one of the listed numbers.")
	}
	challenges, lerr := e.lifecycle.RecentChallenges(ctx)
	if lerr != nil {
		return "", lerr
	}
	if n < 1 || n > len(challenges) {
		return "", apperrors.Validation("Reply with one of the listed numbers.")
	}
	picked := challenges[n-1]
	fields["challenge_description"] = clip(picked.Description, 50)
	return strconv.FormatInt(picked.ID, 10), nil
}

func clip(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func validateKnownUsername(ctx context.Context, e *Engine, userID string, fields map[string]string, input string) (string, error) {
	input = strings.TrimSpace(input)
	if !util.IsValidRegisteredUsername(input) {
		return "", apperrors.Validation("Usernames are 3-20 characters: letters, numbers, dots, dashes and underscores.")
	}
	user, err := e.users.FindByRegisteredUsername(ctx, input)
	if err != nil {
		return "", apperrors.Database(err)
	}
	if user == nil {
		return "", apperrors.Validation(fmt.Sprintf("No registered user named %q.", input))
	}
	return input, nil
}

func humanDates(stored string) string {
	dates, err := splitDates(stored, time.UTC)
	if err != nil {
		return stored
	}
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.Format("Jan 2")
	}
	return strings.Join(parts, ", ")
}
