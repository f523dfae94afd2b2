package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskpulse/backend/api/transport"
	"github.com/taskpulse/backend/pkg/httpcontext"
	"github.com/taskpulse/backend/repository"
	"github.com/taskpulse/backend/usecase/search"
)

type SearchHandler struct {
	baseHandler
	service *search.Service
}

func NewSearchHandler(service *search.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		baseHandler: newBaseHandler(adapter, logger),
		service:     service,
	}
}

// Search serves task search through the TTL-bounded result cache. Results may
// lag task writes by up to the cache TTL; callers needing strong consistency
// query the task store through their own service instead.
func (h *SearchHandler) Search(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.adapter.Attach(ctx)
	defer cancel()

	params := paramsFromQuery(ctx)
	result, err := h.service.Search(stdCtx, params)
	if err != nil {
		h.logger.Error("search failed", zap.Error(err))
		h.respondJSON(ctx, http.StatusInternalServerError, transport.NewError("INTERNAL", "search failed", nil))
		return
	}

	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(result.Tasks, map[string]interface{}{
		"total": result.Total,
		"page":  params.Page,
		"size":  params.Size,
	}))
}

func paramsFromQuery(ctx *fasthttp.RequestCtx) repository.SearchParams {
	args := ctx.QueryArgs()

	params := repository.SearchParams{
		Query:     string(args.Peek("q")),
		Status:    string(args.Peek("status")),
		Priority:  string(args.Peek("priority")),
		OwnerID:   string(args.Peek("owner_id")),
		SortBy:    string(args.Peek("sort_by")),
		SortOrder: string(args.Peek("sort_order")),
	}

	if tags := string(args.Peek("tags")); tags != "" {
		params.Tags = strings.Split(tags, ",")
	}
	if page, err := strconv.Atoi(string(args.Peek("page"))); err == nil {
		params.Page = page
	}
	if size, err := strconv.Atoi(string(args.Peek("size"))); err == nil {
		params.Size = size
	}
	if from, err := time.Parse(time.RFC3339, string(args.Peek("due_from"))); err == nil {
		params.DueFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, string(args.Peek("due_to"))); err == nil {
		params.DueTo = &to
	}

	return params
}
