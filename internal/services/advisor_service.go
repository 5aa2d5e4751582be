package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/ledger"
	"stockfolio/internal/logger"
	"stockfolio/internal/models"
)

// advisorHistoryCap is the number of advisor runs kept per user.
const advisorHistoryCap = 3

const advisorTimeout = 20 * time.Second

// advisorService proxies advisory requests to an OpenAI-compatible
// chat-completions endpoint and keeps a capped per-user history.
type advisorService struct {
	db         *gorm.DB
	portfolios PortfolioServicer
	httpClient *http.Client

	apiURL string
	apiKey string
	model  string
}

// NewAdvisorService creates a new AdvisorServicer. A nil httpClient falls
// back to a client with the advisor timeout.
func NewAdvisorService(db *gorm.DB, portfolios PortfolioServicer, httpClient *http.Client, apiURL, apiKey, model string) AdvisorServicer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: advisorTimeout}
	}
	return &advisorService{
		db:         db,
		portfolios: portfolios,
		httpClient: httpClient,
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Advise builds a prompt from the user's profile and active holdings,
// calls the advisor endpoint, stores the result, and prunes history to
// the cap.
func (s *advisorService) Advise(ctx context.Context, userID uint, profile AdvisorProfile) ([]string, error) {
	if s.apiURL == "" {
		return nil, apperrors.WithMessage(apperrors.ErrAdvisorUnavailable, "Advisor endpoint not configured")
	}

	view, err := s.portfolios.Get(userID, "")
	if err != nil {
		return nil, err
	}

	recommendations, err := s.requestRecommendations(ctx, profile, view)
	if err != nil {
		logger.Get().Errorw("advisor call failed", "user_id", userID, "error", err.Error())
		return nil, apperrors.Wrap(apperrors.ErrAdvisorUnavailable, err)
	}

	profileJSON, _ := json.Marshal(profile)
	recsJSON, _ := json.Marshal(recommendations)
	row := models.AdvisorHistory{
		UserID:          userID,
		Profile:         string(profileJSON),
		Recommendations: string(recsJSON),
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.prune(userID); err != nil {
		return nil, err
	}

	return recommendations, nil
}

// History returns the user's stored advisor runs, newest first.
func (s *advisorService) History(userID uint) ([]models.AdvisorHistory, error) {
	var rows []models.AdvisorHistory
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Limit(advisorHistoryCap).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// prune deletes everything past the newest advisorHistoryCap rows.
func (s *advisorService) prune(userID uint) error {
	var keep []uint
	if err := s.db.Model(&models.AdvisorHistory{}).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(advisorHistoryCap).
		Pluck("id", &keep).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(keep) < advisorHistoryCap {
		return nil
	}
	if err := s.db.Where("user_id = ? AND id NOT IN ?", userID, keep).Delete(&models.AdvisorHistory{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *advisorService) requestRecommendations(ctx context.Context, profile AdvisorProfile, view *PortfolioView) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, advisorTimeout)
	defer cancel()

	payload := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a portfolio advisor. Respond with a JSON array of short recommendation strings, nothing else."},
			{Role: "user", Content: buildAdvisorPrompt(profile, view)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisor endpoint returned status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, err
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("advisor endpoint returned no choices")
	}

	return parseRecommendations(cr.Choices[0].Message.Content), nil
}

// buildAdvisorPrompt summarizes the profile and holdings for the model.
func buildAdvisorPrompt(profile AdvisorProfile, view *PortfolioView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Investor profile: risk tolerance %q, horizon %q, goals %q.\n", profile.RiskTolerance, profile.Horizon, profile.Goals)
	fmt.Fprintf(&b, "Current portfolio %q:\n", view.Name)
	if len(view.Holdings) == 0 {
		b.WriteString("- no holdings\n")
	}
	for _, h := range view.Holdings {
		fmt.Fprintf(&b, "- %s: %v shares, total cost %.2f\n", h.Ticker, h.Quantity, ledger.EffectiveTotalCost(h))
	}
	b.WriteString("Give 3-5 concrete recommendations as a JSON array of strings.")
	return b.String()
}

// parseRecommendations accepts either a JSON array of strings or free
// text, which is split into non-empty lines.
func parseRecommendations(content string) []string {
	content = strings.TrimSpace(content)

	var recs []string
	if err := json.Unmarshal([]byte(content), &recs); err == nil {
		return recs
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line != "" {
			recs = append(recs, line)
		}
	}
	return recs
}
