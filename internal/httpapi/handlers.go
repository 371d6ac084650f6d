// Package httpapi holds the gin handlers. Keep these thin: parse and
// validate input, resolve the caller identity once, call internal
// services, map errors through writeError.
package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"xdial-backend/internal/association"
	"xdial-backend/internal/audit"
	"xdial-backend/internal/auth"
	"xdial-backend/internal/calls"
	"xdial-backend/internal/catalog"
	"xdial-backend/internal/dialer"
	"xdial-backend/internal/identity"
	"xdial-backend/internal/rbac"
	"xdial-backend/internal/recordings"
	"xdial-backend/internal/status"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
type Handlers struct {
	Auth         *auth.Manager
	Identity     *identity.Service
	Associations *association.Service
	Status       *status.Engine
	Calls        *calls.Service
	Catalog      *catalog.Service
	Dialer       dialer.Repository
	Recordings   *recordings.Service
	Audit        *audit.Recorder
}

func mustIdentity(c *gin.Context) (auth.Identity, bool) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return auth.Identity{}, false
	}
	return id, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login validates credentials and issues a JWT pair.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Username == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	id, err := h.Identity.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		// Credential failures are 401 here, not 403: the caller isn't
		// authenticated yet.
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Audit.Record(c.Request.Context(), audit.EventLogin, id.UserID, id.UserID, req.Username)
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new pair. Role and profile are
// re-resolved from the identity store, not trusted from the old token.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}

	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	id, err := h.Identity.IdentityFor(c.Request.Context(), claims.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// Me echoes the verified caller identity.
func (h Handlers) Me(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":   id.UserID,
		"client_id": id.ClientID,
		"role":      id.Role,
		"superuser": id.Superuser,
	})
}

// --- Associations ---

func (h Handlers) ListAssociations(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}
	out, err := h.Associations.List(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"associations": out})
}

func (h Handlers) GetAssociation(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	a, err := h.Associations.Get(c.Request.Context(), ident, id)
	if err != nil {
		writeError(c, err)
		return
	}
	bots, err := h.Associations.Bots(c.Request.Context(), ident, id)
	if err != nil {
		writeError(c, err)
		return
	}
	current, err := h.Status.CurrentStatus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"association": a, "bots": bots, "current_status": current})
}

func (h Handlers) CreateAssociation(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	var in association.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	a, hist, err := h.Associations.Create(c.Request.Context(), ident, in)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Audit.Record(c.Request.Context(), audit.EventStatusChange, ident.UserID, a.ID, hist.StatusName)
	c.JSON(http.StatusCreated, gin.H{"association": a, "current_status": hist})
}

func (h Handlers) PatchAssociation(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch association.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	a, hist, err := h.Associations.UpdateConfig(c.Request.Context(), ident, id, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	if hist != nil {
		h.Audit.Record(c.Request.Context(), audit.EventStatusChange, ident.UserID, a.ID, hist.StatusName)
	}
	c.JSON(http.StatusOK, gin.H{"association": a, "current_status": hist})
}

func (h Handlers) ApproveAssociation(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	a, err := h.Associations.Approve(c.Request.Context(), ident, id)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Audit.Record(c.Request.Context(), audit.EventApproval, ident.UserID, a.ID, "")
	c.JSON(http.StatusOK, gin.H{"association": a})
}

// --- Status ---

type setStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus transitions an association's lifecycle. Visibility is checked
// through the caller's scope before the engine runs.
func (h Handlers) SetStatus(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}

	if _, err := h.Associations.Get(c.Request.Context(), ident, id); err != nil {
		writeError(c, err)
		return
	}
	hist, err := h.Status.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Audit.Record(c.Request.Context(), audit.EventStatusChange, ident.UserID, id, req.Status)
	c.JSON(http.StatusOK, gin.H{"current_status": hist})
}

func (h Handlers) CurrentStatus(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if _, err := h.Associations.Get(c.Request.Context(), ident, id); err != nil {
		writeError(c, err)
		return
	}
	current, err := h.Status.CurrentStatus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"current_status": current})
}

func (h Handlers) StatusHistory(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if _, err := h.Associations.Get(c.Request.Context(), ident, id); err != nil {
		writeError(c, err)
		return
	}
	hist, err := h.Status.ListHistory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": hist})
}

// --- Calls & reporting ---

// ListCalls returns an association's calls, optionally filtered by
// ?categories=Interested,Unknown (display names, reverse-expanded).
func (h Handlers) ListCalls(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var selected []string
	if raw := c.Query("categories"); raw != "" {
		selected = strings.Split(raw, ",")
	}
	out, err := h.Calls.List(c.Request.Context(), ident, id, selected)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": out})
}

func (h Handlers) LatestStageCalls(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.Calls.LatestStage(c.Request.Context(), ident, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": out})
}

// CategoryCounts powers the dashboard pie chart. ?latest=true restricts the
// aggregation to each number's current outcome.
func (h Handlers) CategoryCounts(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	latestOnly := c.Query("latest") == "true"

	counts, err := h.Calls.Counts(c.Request.Context(), ident, id, latestOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts, "mapping_version": h.Calls.Mapping().Version()})
}

func (h Handlers) TransferStats(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	stats, err := h.Calls.Stats(c.Request.Context(), ident, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- Catalog ---

func (h Handlers) ListStatuses(c *gin.Context) {
	out, err := h.Catalog.ListStatuses(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": out})
}

func (h Handlers) ListTransferSettings(c *gin.Context) {
	out, err := h.Catalog.ListTransferSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfer_settings": out})
}

func (h Handlers) DeleteStatus(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteStatus(c.Request.Context(), ident, id); err != nil {
		writeError(c, err)
		return
	}
	h.Audit.Record(c.Request.Context(), audit.EventCatalogDelete, ident.UserID, id, "status")
	c.Status(http.StatusNoContent)
}

// --- Dialer settings ---

// GetDialerSettings returns the telephony routing config for an
// association. Credentials are redacted unless the caller may view them.
func (h Handlers) GetDialerSettings(c *gin.Context) {
	ident, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	a, err := h.Associations.Get(c.Request.Context(), ident, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if a.DialerSettingsID == nil {
		c.JSON(http.StatusOK, gin.H{"dialer_settings": nil})
		return
	}

	settings, err := h.Dialer.GetSettings(c.Request.Context(), *a.DialerSettingsID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !rbac.ForRole(ident.Role, ident.Superuser).CanViewDialerCredentials {
		settings = settings.Redacted()
	}
	c.JSON(http.StatusOK, gin.H{"dialer_settings": settings})
}

// --- Recordings ---

func (h Handlers) FetchRecordings(c *gin.Context) {
	if _, ok := mustIdentity(c); !ok {
		return
	}

	serverID, err := strconv.ParseInt(c.Query("server_id"), 10, 64)
	if err != nil || serverID <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "server_id must be a positive integer"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "100"))

	out, err := h.Recordings.Fetch(c.Request.Context(), recordings.FetchParams{
		ServerID:  serverID,
		Date:      c.Query("date"),
		Extension: c.Query("extension"),
		Number:    c.Query("number"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.DefaultQuery("sort_by", "time"),
		SortDir:   c.DefaultQuery("sort_dir", "desc"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
