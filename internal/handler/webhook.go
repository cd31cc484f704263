package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/challengeclub/competition-server-go/internal/config"
	"github.com/challengeclub/competition-server-go/internal/conversation"
	apperrors "github.com/challengeclub/competition-server-go/internal/errors"
	"github.com/challengeclub/competition-server-go/internal/httputil"
	"github.com/challengeclub/competition-server-go/internal/model"
	"github.com/challengeclub/competition-server-go/internal/service"
)

// flowCommands maps slash commands to the conversation flow they start.
// All of these run in private chat only.
var flowCommands = map[string]model.FlowKind{
	"/register":        model.FlowRegister,
	"/addscore":        model.FlowAddScore,
	"/removescore":     model.FlowRemoveScore,
	"/editscore":       model.FlowEditScore,
	"/setbaseline":     model.FlowSetBaseline,
	"/updatevalue":     model.FlowUpdateValue,
	"/startchallenge":  model.FlowStartChallenge,
	"/editchallenge":   model.FlowEditChallenge,
	"/removechallenge": model.FlowRemoveChallenge,
	"/addadmin":        model.FlowAddAdmin,
	"/removeadmin":     model.FlowRemoveAdmin,
	"/removeentry":     model.FlowRemoveEntry,
	"/newsuggest":      model.FlowNewSuggestion,
}

// statCommands maps leaderboard commands to their aggregation period.
var statCommands = map[string]model.PeriodKind{
	"/stats":         model.PeriodToDate,
	"/statsweek":     model.PeriodThisWeek,
	"/statslastweek": model.PeriodLastWeek,
	"/statsgain":     model.PeriodGain,
	"/statsloss":     model.PeriodLoss,
	"/statschange":   model.PeriodNetChange,
}

type WebhookHandler struct {
	engine    *conversation.Engine
	users     *service.UserService
	ledger    *service.LedgerService
	lifecycle *service.LifecycleService
	perms     *service.PermissionService
	loc       *time.Location
}

func NewWebhookHandler(
	engine *conversation.Engine,
	users *service.UserService,
	ledger *service.LedgerService,
	lifecycle *service.LifecycleService,
	perms *service.PermissionService,
	loc *time.Location,
) *WebhookHandler {
	return &WebhookHandler{
		engine:    engine,
		users:     users,
		ledger:    ledger,
		lifecycle: lifecycle,
		perms:     perms,
		loc:       loc,
	}
}

func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("invalid webhook request")
		httputil.WriteError(w, apperrors.Validation("Invalid request body"))
		return
	}

	if req.Sender.ID == "" {
		httputil.WriteError(w, apperrors.Validation("Missing sender id"))
		return
	}

	text := strings.TrimSpace(req.Text)
	isPrivate := req.Chat.Type != ChatTypeGroup

	log.Info().
		Str("senderId", req.Sender.ID).
		Str("chatType", req.Chat.Type).
		Str("text", truncate(text, 50)).
		Msg("received webhook")

	ctx, cancel := context.WithTimeout(r.Context(), config.DBQueryTimeout)
	defer cancel()

	var platformUsername *string
	if req.Sender.Username != "" {
		platformUsername = &req.Sender.Username
	}
	if _, err := h.users.Touch(ctx, req.Sender.ID, platformUsername); err != nil {
		log.Error().Err(err).Str("senderId", req.Sender.ID).Msg("user upsert failed")
		writeJSON(w, http.StatusOK, NewTextResponse("Something went wrong. Please try again."))
		return
	}

	reply := h.route(ctx, req.Sender.ID, text, isPrivate)
	writeJSON(w, http.StatusOK, reply)
}

func (h *WebhookHandler) route(ctx context.Context, userID, text string, isPrivate bool) WebhookResponse {
	if strings.HasPrefix(text, "/") {
		return h.handleCommand(ctx, userID, text, isPrivate)
	}

	if isPrivate {
		return h.handlePrivateText(ctx, userID, text)
	}
	return h.handleGroupText(ctx, userID, text)
}

func (h *WebhookHandler) handleCommand(ctx context.Context, userID, text string, isPrivate bool) WebhookResponse {
	cmd, arg, _ := strings.Cut(text, " ")
	cmd = strings.ToLower(cmd)
	arg = strings.TrimSpace(arg)

	if kind, ok := flowCommands[cmd]; ok {
		if !isPrivate {
			return NewTextResponse("Message me privately to do that.")
		}
		reply, err := h.engine.Begin(ctx, userID, kind)
		if err != nil {
			return h.errorResponse(err)
		}
		return NewTextResponse(reply)
	}

	if period, ok := statCommands[cmd]; ok {
		return h.handleStats(ctx, period)
	}

	switch cmd {
	case "/start":
		return h.handleStart(ctx, userID)
	case "/help":
		return h.handleHelp(ctx, userID)
	case "/cancel":
		if !isPrivate {
			return NewTextResponse("Message me privately to do that.")
		}
		reply, err := h.engine.Cancel(ctx, userID)
		if err != nil {
			return h.errorResponse(err)
		}
		return NewTextResponse(reply)
	case "/challenge":
		return h.handleChallenge(ctx)
	case "/nextchallenge":
		return h.handleNextChallenge(ctx)
	case "/pastchallenges":
		return h.handlePastChallenges(ctx)
	case "/admins":
		return h.handleAdmins(ctx)
	case "/vote":
		return h.handleVoteList(ctx)
	case "/feedback":
		if arg == "" {
			return NewTextResponse("Tell me what's on your mind: /feedback <message>")
		}
		if err := h.users.RecordFeedback(ctx, userID, arg); err != nil {
			return h.errorResponse(err)
		}
		return NewTextResponse("Thanks for the feedback!")
	case "/feedbacklist":
		return h.handleFeedbackList(ctx, userID)
	default:
		return NewTextResponse("I don't know that command. Try /help.")
	}
}

func (h *WebhookHandler) handlePrivateText(ctx context.Context, userID, text string) WebhookResponse {
	reply, err := h.engine.Advance(ctx, userID, text)
	if err == nil {
		return NewTextResponse(reply)
	}

	if apperrors.IsCode(err, apperrors.ErrCodeNoSession) {
		if n, convErr := strconv.Atoi(text); convErr == nil {
			return h.handleVoteCast(ctx, userID, n)
		}
		return NewTextResponse("Nothing in progress. Try /help to see what I can do.")
	}
	return h.errorResponse(err)
}

func (h *WebhookHandler) handleGroupText(ctx context.Context, userID, text string) WebhookResponse {
	// Plain group chatter is none of our business; a bare number is a vote
	// for the listed suggestions.
	n, err := strconv.Atoi(text)
	if err != nil {
		return NewEmptyResponse()
	}
	return h.handleVoteCast(ctx, userID, n)
}

func (h *WebhookHandler) handleStart(ctx context.Context, userID string) WebhookResponse {
	if err := h.perms.EnsureBootstrap(ctx, userID); err != nil {
		return h.errorResponse(err)
	}
	return NewTextResponse(
		"Hello! I keep score for your group's challenges.\n\n" +
			"Register with /register, then see /help for everything else.")
}

func (h *WebhookHandler) handleHelp(ctx context.Context, userID string) WebhookResponse {
	var b strings.Builder
	b.WriteString("Here's what I can do:\n\n")
	b.WriteString("/register - pick your leaderboard name\n")
	b.WriteString("/addscore - record points\n")
	b.WriteString("/editscore - correct a day's points\n")
	b.WriteString("/removescore - clear a day's points\n")
	b.WriteString("/setbaseline /updatevalue - change challenges\n")
	b.WriteString("/stats /statsweek /statslastweek - leaderboards\n")
	b.WriteString("/statsgain /statsloss /statschange - change leaderboards\n")
	b.WriteString("/challenge /nextchallenge /pastchallenges - challenge info\n")
	b.WriteString("/newsuggest - suggest a challenge, /vote - vote on one\n")
	b.WriteString("/feedback <message> - tell the operators something\n")
	b.WriteString("/cancel - abandon what we were doing\n")

	isAdmin, err := h.perms.IsAdmin(ctx, userID)
	if err == nil && isAdmin {
		b.WriteString("\nAdmin commands:\n")
		b.WriteString("/startchallenge - create a challenge\n")
		b.WriteString("/editchallenge /removechallenge - fix or delete a challenge\n")
		b.WriteString("/addadmin /removeadmin - manage admins\n")
		b.WriteString("/removeentry - wipe a user's entries\n")
		b.WriteString("/admins - list admins\n")
		b.WriteString("/feedbacklist - read recent feedback\n")
	}
	return NewTextResponse(b.String())
}

func (h *WebhookHandler) handleStats(ctx context.Context, period model.PeriodKind) WebhookResponse {
	challenge, err := h.lifecycle.CurrentChallenge(ctx)
	if err != nil {
		return h.errorResponse(err)
	}
	if challenge == nil {
		return NewTextResponse("There is no challenge right now.")
	}

	standings, err := h.ledger.Aggregate(ctx, challenge, period, time.Now().In(h.loc))
	if err != nil {
		return h.errorResponse(err)
	}
	if len(standings) == 0 {
		return NewTextResponse("No entries yet. Be the first!")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", periodTitle(period))
	for i, st := range standings {
		if challenge.Kind == model.ChallengeKindChange {
			fmt.Fprintf(&b, "%d. %s: %+.1f%%\n", i+1, st.Username, st.Percent)
		} else {
			fmt.Fprintf(&b, "%d. %s: %d points\n", i+1, st.Username, st.Points)
		}
	}
	return NewTextResponse(b.String())
}

func periodTitle(period model.PeriodKind) string {
	switch period {
	case model.PeriodThisWeek:
		return "This week's standings:"
	case model.PeriodLastWeek:
		return "Last week's standings:"
	case model.PeriodGain:
		return "Biggest gains:"
	case model.PeriodLoss:
		return "Biggest losses:"
	case model.PeriodNetChange:
		return "Net change standings:"
	default:
		return "Standings so far:"
	}
}

func (h *WebhookHandler) handleChallenge(ctx context.Context) WebhookResponse {
	challenge, err := h.lifecycle.CurrentChallenge(ctx)
	if err != nil {
		return h.errorResponse(err)
	}
	if challenge == nil {
		return NewTextResponse("There is no challenge right now. Suggest one with /newsuggest!")
	}
	return NewTextResponse(fmt.Sprintf(
		"%s\n\nScoring: %s\nPeriod: %s to %s\n\n%s",
		challenge.Description,
		challenge.ScoringSystem,
		challenge.StartDate.Format("Jan 2"),
		challenge.EndDate.Format("Jan 2"),
		service.StatusLine(challenge, time.Now().In(h.loc)),
	))
}

func (h *WebhookHandler) handleNextChallenge(ctx context.Context) WebhookResponse {
	challenge, err := h.lifecycle.CurrentChallenge(ctx)
	if err != nil {
		return h.errorResponse(err)
	}
	if challenge == nil || challenge.Status != model.ChallengeStatusPending {
		return NewTextResponse("No upcoming challenge is scheduled.")
	}
	return NewTextResponse(fmt.Sprintf(
		"Coming up: %s\n\n%s",
		challenge.Description,
		service.StatusLine(challenge, time.Now().In(h.loc)),
	))
}

func (h *WebhookHandler) handlePastChallenges(ctx context.Context) WebhookResponse {
	challenges, err := h.lifecycle.PastChallenges(ctx)
	if err != nil {
		return h.errorResponse(err)
	}
	if len(challenges) == 0 {
		return NewTextResponse("No finished challenges yet.")
	}

	var b strings.Builder
	b.WriteString("Past challenges:\n\n")
	for _, c := range challenges {
		fmt.Fprintf(&b, "%s - %s (%s to %s)\n",
			truncate(c.Description, 60), c.Kind,
			c.StartDate.Format("Jan 2006"), c.EndDate.Format("Jan 2006"))
	}
	return NewTextResponse(b.String())
}

func (h *WebhookHandler) handleAdmins(ctx context.Context) WebhookResponse {
	admins, err := h.perms.ListAdmins(ctx)
	if err != nil {
		return h.errorResponse(err)
	}
	if len(admins) == 0 {
		return NewTextResponse("No admins yet. The first user to /start becomes one.")
	}

	var b strings.Builder
	b.WriteString("Admins:\n")
	for _, a := range admins {
		fmt.Fprintf(&b, "- %s\n", a.DisplayName())
	}
	return NewTextResponse(b.String())
}

func (h *WebhookHandler) handleFeedbackList(ctx context.Context, userID string) WebhookResponse {
	if err := h.perms.RequireAdmin(ctx, userID); err != nil {
		return h.errorResponse(err)
	}
	items, err := h.users.RecentFeedback(ctx, config.FeedbackListLimit)
	if err != nil {
		return h.errorResponse(err)
	}
	if len(items) == 0 {
		return NewTextResponse("No feedback yet.")
	}

	var b strings.Builder
	b.WriteString("Recent feedback:\n\n")
	for _, f := range items {
		fmt.Fprintf(&b, "%s: %s\n", f.CreatedAt.Format("Jan 2"), truncate(f.Message, 120))
	}
	return NewTextResponse(b.String())
}

func (h *WebhookHandler) handleVoteList(ctx context.Context) WebhookResponse {
	suggestions, err := h.lifecycle.OpenSuggestions(ctx)
	if err != nil {
		return h.errorResponse(err)
	}
	if len(suggestions) == 0 {
		return NewTextResponse("No suggestions to vote on. Add one with /newsuggest!")
	}

	var b strings.Builder
	b.WriteString("Challenge suggestions:\n\n")
	for i, s := range suggestions {
		fmt.Fprintf(&b, "%d. %s (%d votes)\n", i+1, truncate(s.Description, 80), s.Votes)
	}
	b.WriteString("\nReply with a number to vote. Voting again moves your vote.")
	return NewTextResponse(b.String())
}

// handleVoteCast resolves a bare number against the current suggestion
// listing and casts the vote.
func (h *WebhookHandler) handleVoteCast(ctx context.Context, userID string, n int) WebhookResponse {
	suggestions, err := h.lifecycle.OpenSuggestions(ctx)
	if err != nil {
		return h.errorResponse(err)
	}
	if n < 1 || n > len(suggestions) {
		if len(suggestions) == 0 {
			return NewEmptyResponse()
		}
		return NewTextResponse(fmt.Sprintf("Pick a number between 1 and %d.", len(suggestions)))
	}

	target := suggestions[n-1]
	moved, err := h.lifecycle.CastVote(ctx, userID, target.ID)
	if err != nil {
		return h.errorResponse(err)
	}
	if moved {
		return NewTextResponse(fmt.Sprintf("Moved your vote to %q.", truncate(target.Description, 60)))
	}
	return NewTextResponse(fmt.Sprintf("Vote recorded for %q.", truncate(target.Description, 60)))
}

func (h *WebhookHandler) errorResponse(err error) WebhookResponse {
	if appErr, ok := apperrors.AsAppError(err); ok {
		if appErr.Code == apperrors.ErrCodeDatabase || appErr.Code == apperrors.ErrCodeInternal {
			log.Error().Err(err).Msg("webhook command failed")
		}
		return NewTextResponse(appErr.Message)
	}
	log.Error().Err(err).Msg("webhook command failed")
	return NewTextResponse("Something went wrong. Please try again.")
}
