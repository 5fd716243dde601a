package webserver

import (
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/OneOfOne/xxhash"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/data"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/types"
)

type History struct {
	store     HistoryStore
	publish   HistoryPublisher
	sanitizer *bluemonday.Policy
}

func NewHistory(store HistoryStore, publish HistoryPublisher, sanitizer *bluemonday.Policy) History {
	return History{store: store, publish: publish, sanitizer: sanitizer}
}

// readable reports whether s still has text once markup is stripped. Stored text
// keeps its markup verbatim; clients escape it on render.
func (h History) readable(s string) bool {
	return strings.TrimSpace(html.UnescapeString(h.sanitizer.Sanitize(s))) != ""
}

func (h History) Create(c *gin.Context) {
	var req struct {
		AgentID   string `json:"agentId"`
		Question  string `json:"question"`
		Answer    string `json:"answer"`
		SessionID string `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if !types.ValidAgent(req.AgentID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "agentId must be agent-1 or agent-2"})
		return
	}

	rec := &types.SearchHistory{
		AgentID:   req.AgentID,
		Question:  strings.TrimSpace(req.Question),
		Answer:    strings.TrimSpace(req.Answer),
		SessionID: strings.TrimSpace(req.SessionID),
		CreatedBy: currentUser(c),
	}
	if !h.readable(rec.Question) || !h.readable(rec.Answer) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "question and answer are required"})
		return
	}
	if utf8.RuneCountInString(rec.SessionID) > types.MaxSessionIDLength {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("sessionId must be at most %d characters", types.MaxSessionIDLength)})
		return
	}
	if rec.SessionID == "" {
		rec.SessionID = "session-" + uuid.NewString()
	}

	if err := h.store.Create(c.Request.Context(), rec); err != nil {
		log.Printf("http: history: create: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something broke!"})
		return
	}

	if h.publish != nil {
		if err := h.publish(c.Request.Context(), rec); err != nil {
			log.Printf("http: history: publish %d: %v", rec.ID, err)
		}
	}

	c.JSON(http.StatusCreated, rec)
}

func (h History) List(c *gin.Context) {
	f := types.HistoryFilter{
		UserID:    currentUser(c),
		AgentID:   c.Query("agentId"),
		SessionID: c.Query("sessionId"),
		OrderBy:   c.DefaultQuery("orderBy", "createdAt"),
		Desc:      true,
		Limit:     data.DefaultHistoryLimit,
	}
	if _, ok := data.HistoryColumns[f.OrderBy]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "orderBy must be one of createdAt, agentId, sessionId"})
		return
	}
	switch strings.ToLower(c.DefaultQuery("orderDirection", "desc")) {
	case "desc":
	case "asc":
		f.Desc = false
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "orderDirection must be asc or desc"})
		return
	}
	if f.AgentID != "" && !types.ValidAgent(f.AgentID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "agentId must be agent-1 or agent-2"})
		return
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > data.MaxHistoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("limit must be between 1 and %d", data.MaxHistoryLimit)})
			return
		}
		f.Limit = n
	}

	recs, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		log.Printf("http: history: list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something broke!"})
		return
	}
	if recs == nil {
		recs = []types.SearchHistory{}
	}

	body, err := json.Marshal(recs)
	if err != nil {
		log.Printf("http: history: encode: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something broke!"})
		return
	}
	etag := fmt.Sprintf(`"%016x"`, xxhash.Checksum64(body))
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
