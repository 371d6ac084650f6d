package httpapi

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var callCSVHeader = []string{
	"number", "stage", "response_category", "display_category",
	"list_id", "transferred", "timestamp", "transcription",
}

// ExportCallsCSV streams an association's calls as CSV. Accepts the same
// ?categories= filter as ListCalls plus ?latest=true for the per-number
// current outcome view.
func (h Handlers) ExportCallsCSV(c *gin.Context) {
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

	rows, err := h.Calls.List(c.Request.Context(), ident, id, selected)
	if err != nil {
		writeError(c, err)
		return
	}
	if c.Query("latest") == "true" {
		latest, err := h.Calls.LatestStage(c.Request.Context(), ident, id)
		if err != nil {
			writeError(c, err)
			return
		}
		rows = latest
	}

	mapping := h.Calls.Mapping()

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename="calls_%d_%s.csv"`, id, time.Now().UTC().Format("20060102")))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	if err := w.Write(callCSVHeader); err != nil {
		return
	}
	for _, call := range rows {
		record := []string{
			call.Number,
			strconv.Itoa(call.Stage),
			call.ResponseCategory,
			mapping.Display(call.ResponseCategory),
			call.ListID,
			strconv.FormatBool(call.Transferred),
			call.Timestamp.UTC().Format(time.RFC3339),
			call.Transcription,
		}
		if err := w.Write(record); err != nil {
			return
		}
	}
	w.Flush()
}
