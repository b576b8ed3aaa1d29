package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rigdev/pulse/internal/adapter/git"
	"github.com/rigdev/pulse/internal/config"
	"github.com/rigdev/pulse/internal/ingest"
	"github.com/rigdev/pulse/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Handler processes incoming GitHub webhook events.
type Handler struct {
	config   func() *config.Config
	ingester *ingest.Ingester
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewHandler creates a new webhook Handler. cfg is read on every request so
// the secret and label follow config reloads.
func NewHandler(cfg func() *config.Config, ingester *ingest.Ingester, log logrus.FieldLogger) *Handler {
	return &Handler{
		config:   cfg,
		ingester: ingester,
		log:      log,
		now:      time.Now,
	}
}

// HandleWebhook is the HTTP handler for POST /webhook.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	cfg := h.config()

	// Verify HMAC-SHA256 signature.
	signature := r.Header.Get("X-Hub-Signature-256")
	if !h.verifySignature(cfg.Server.WebhookSecret, body, signature) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	if eventType == "" {
		http.Error(w, "missing event type", http.StatusBadRequest)
		return
	}

	event, err := parseEvent(body)
	if err != nil {
		h.log.WithError(err).WithField("event", eventType).Warn("failed to parse webhook event")
		http.Error(w, "failed to parse event", http.StatusBadRequest)
		return
	}

	action := fmt.Sprintf("%s.%s", eventType, event.Action)
	if eventType == "ping" {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "pong")
		return
	}
	if !isTrackedAction(action) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "event %s ignored", action)
		return
	}

	log := h.log.WithFields(logrus.Fields{"event": action, "repo": event.Repository.FullName})
	switch eventType {
	case "deployment_status":
		h.handleDeploymentStatus(w, r, log, event)
	case "issues":
		h.handleIssue(w, log, event, cfg.GitHub.IncidentLabel)
	}
}

func (h *Handler) handleDeploymentStatus(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, event *webhookEvent) {
	status, ok := git.StatusFromState(event.DeploymentStatus.State)
	if !ok {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "deployment state %s ignored", event.DeploymentStatus.State)
		return
	}

	repo := event.Repository.FullName
	dep := metrics.Deployment{
		ID:          git.DeploymentID(repo, event.Deployment.ID),
		Repo:        repo,
		SHA:         event.Deployment.SHA,
		Environment: event.Deployment.Environment,
		Status:      status,
		CommittedAt: event.Deployment.CreatedAt,
		DeployedAt:  event.DeploymentStatus.CreatedAt,
	}
	if dep.DeployedAt.IsZero() {
		dep.DeployedAt = h.now()
	}

	recorded, err := h.ingester.RecordDeployment(r.Context(), dep)
	if err != nil {
		log.WithError(err).Error("failed to record deployment")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !recorded {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "deployment to %s of %s ignored", dep.Environment, repo)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, "recorded deployment %s", dep.ID)
}

func (h *Handler) handleIssue(w http.ResponseWriter, log logrus.FieldLogger, event *webhookEvent, label string) {
	if !hasLabel(event.Issue.Labels, label) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "issue without %s label ignored", label)
		return
	}

	repo := event.Repository.FullName
	inc := metrics.Incident{
		ID:       git.IncidentID(repo, event.Issue.Number),
		Title:    event.Issue.Title,
		OpenedAt: event.Issue.CreatedAt,
	}

	var (
		recorded bool
		err      error
	)
	if event.Action == "closed" {
		at := h.now()
		if event.Issue.ClosedAt != nil {
			at = *event.Issue.ClosedAt
		}
		recorded, err = h.ingester.ResolveIncident(repo, inc, at)
	} else {
		if event.Issue.State == "closed" && event.Issue.ClosedAt != nil {
			inc.ResolvedAt = event.Issue.ClosedAt
		}
		recorded, err = h.ingester.RecordIncident(repo, inc)
	}
	if err != nil {
		log.WithError(err).Error("failed to record incident")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !recorded {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "incident for %s ignored", repo)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, "recorded incident %s", inc.ID)
}

// verifySignature checks the HMAC-SHA256 signature from GitHub.
func (h *Handler) verifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		h.log.Warn("no webhook secret configured, rejecting request")
		return false
	}

	if signature == "" {
		return false
	}

	// GitHub sends "sha256=<hex>".
	prefix := "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return false
	}
	sigHex := signature[len(prefix):]

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(sigHex), []byte(expected))
}

// webhookEvent holds the fields of deployment_status and issues payloads.
type webhookEvent struct {
	Action     string `json:"action"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Deployment struct {
		ID          int64     `json:"id"`
		SHA         string    `json:"sha"`
		Environment string    `json:"environment"`
		CreatedAt   time.Time `json:"created_at"`
	} `json:"deployment"`
	DeploymentStatus struct {
		State     string    `json:"state"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"deployment_status"`
	Issue struct {
		Number    int          `json:"number"`
		Title     string       `json:"title"`
		State     string       `json:"state"`
		CreatedAt time.Time    `json:"created_at"`
		ClosedAt  *time.Time   `json:"closed_at"`
		Labels    []issueLabel `json:"labels"`
	} `json:"issue"`
}

type issueLabel struct {
	Name string `json:"name"`
}

func parseEvent(body []byte) (*webhookEvent, error) {
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("unmarshal webhook: %w", err)
	}
	return &event, nil
}

// isTrackedAction checks if the action is one we care about.
func isTrackedAction(action string) bool {
	tracked := map[string]bool{
		"deployment_status.created": true,
		"issues.opened":             true,
		"issues.labeled":            true,
		"issues.reopened":           true,
		"issues.closed":             true,
	}
	return tracked[action]
}

// hasLabel reports whether the issue carries label, ignoring case.
func hasLabel(labels []issueLabel, label string) bool {
	for _, l := range labels {
		if strings.EqualFold(l.Name, label) {
			return true
		}
	}
	return false
}
