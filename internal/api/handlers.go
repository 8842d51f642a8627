package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pageinsights/internal/cache"
	"pageinsights/internal/model"
	"pageinsights/internal/storage/postgres"
	"pageinsights/internal/summary"
	"pageinsights/internal/telemetry"
)

// embeddedCommentLimit bounds the comment window attached to each post
// in listings, mirroring the per-post scrape bound.
const embeddedCommentLimit = 10

func (s *Server) scrapePage(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "page_id")
	start := time.Now()

	res := s.deps.Crawler.Crawl(r.Context(), pageID)
	if res.Error {
		if res.NotFound {
			telemetry.ObserveScrape("not_found", time.Since(start))
			writeError(w, http.StatusNotFound, res.ErrorMessage)
			return
		}
		telemetry.ObserveScrape("error", time.Since(start))
		writeError(w, http.StatusInternalServerError, res.ErrorMessage)
		return
	}

	out := s.deps.Ingestor.Process(r.Context(), res)
	if !out.Success {
		telemetry.ObserveScrape("error", time.Since(start))
		writeError(w, http.StatusInternalServerError, out.Error)
		return
	}

	telemetry.ObserveScrape("ok", time.Since(start))
	s.deps.Cache.InvalidatePage(r.Context(), pageID)
	writeJSON(w, http.StatusOK, out)
}

type pageListResponse struct {
	Pages      []model.Page `json:"pages"`
	Pagination Meta         `json:"pagination"`
}

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)
	filter := pageFilterFrom(r)

	key := cache.ListKey(
		deref(filter.Name), deref(filter.Industry),
		derefInt(filter.MinFollowers), derefInt(filter.MaxFollowers),
		page, limit,
	)
	var cached pageListResponse
	if err := s.deps.Cache.Get(r.Context(), key, &cached); err == nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	total, err := s.deps.Pages.CountPages(r.Context(), filter)
	if err != nil {
		s.storeError(w, "count pages", err)
		return
	}
	pages, err := s.deps.Pages.ListPages(r.Context(), filter, limit, offsetFor(page, limit))
	if err != nil {
		s.storeError(w, "list pages", err)
		return
	}
	if pages == nil {
		pages = []model.Page{}
	}

	resp := pageListResponse{Pages: pages, Pagination: newMeta(page, limit, total)}
	s.deps.Cache.Set(r.Context(), key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "page_id")

	key := cache.PageKey(pageID)
	var cached model.Page
	if err := s.deps.Cache.Get(r.Context(), key, &cached); err == nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	page, ok := s.resolvePage(w, r, pageID)
	if !ok {
		return
	}
	s.deps.Cache.Set(r.Context(), key, page)
	writeJSON(w, http.StatusOK, page)
}

type postWithComments struct {
	model.Post
	Comments []model.Comment `json:"comments"`
}

type postListResponse struct {
	Posts      []postWithComments `json:"posts"`
	Pagination Meta               `json:"pagination"`
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "page_id")
	page, limit := parsePagination(r)

	key := cache.PagePostsKey(pageID, page, limit)
	var cached postListResponse
	if err := s.deps.Cache.Get(r.Context(), key, &cached); err == nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	pageRow, ok := s.resolvePage(w, r, pageID)
	if !ok {
		return
	}

	total, err := s.deps.Posts.CountByPage(r.Context(), pageRow.ID)
	if err != nil {
		s.storeError(w, "count posts", err)
		return
	}
	posts, err := s.deps.Posts.ListByPage(r.Context(), pageRow.ID, limit, offsetFor(page, limit))
	if err != nil {
		s.storeError(w, "list posts", err)
		return
	}

	out := make([]postWithComments, 0, len(posts))
	for _, post := range posts {
		comments, err := s.deps.Comments.ListByPost(r.Context(), post.ID, embeddedCommentLimit, 0)
		if err != nil {
			s.storeError(w, "list comments", err)
			return
		}
		if comments == nil {
			comments = []model.Comment{}
		}
		out = append(out, postWithComments{Post: post, Comments: comments})
	}

	resp := postListResponse{Posts: out, Pagination: newMeta(page, limit, total)}
	s.deps.Cache.Set(r.Context(), key, resp)
	writeJSON(w, http.StatusOK, resp)
}

type userListResponse struct {
	Employees  []model.User `json:"employees"`
	Pagination Meta         `json:"pagination"`
}

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "page_id")
	page, limit := parsePagination(r)

	key := cache.PageEmployeesKey(pageID, page, limit)
	var cached userListResponse
	if err := s.deps.Cache.Get(r.Context(), key, &cached); err == nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	pageRow, ok := s.resolvePage(w, r, pageID)
	if !ok {
		return
	}

	total, err := s.deps.Users.CountByPage(r.Context(), pageRow.ID)
	if err != nil {
		s.storeError(w, "count employees", err)
		return
	}
	users, err := s.deps.Users.ListByPage(r.Context(), pageRow.ID, limit, offsetFor(page, limit))
	if err != nil {
		s.storeError(w, "list employees", err)
		return
	}
	if users == nil {
		users = []model.User{}
	}

	resp := userListResponse{Employees: users, Pagination: newMeta(page, limit, total)}
	s.deps.Cache.Set(r.Context(), key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getInsights(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "page_id")

	key := cache.PageInsightsKey(pageID)
	var cached map[string]any
	if err := s.deps.Cache.Get(r.Context(), key, &cached); err == nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	stats, err := s.deps.Insights.PageStats(r.Context(), pageID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		s.storeError(w, "page insights", err)
		return
	}
	s.deps.Cache.Set(r.Context(), key, stats)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "page_id")
	if !s.deps.Summarizer.Available() {
		writeError(w, http.StatusServiceUnavailable, summary.ErrUnavailable.Error())
		return
	}

	page, ok := s.resolvePage(w, r, pageID)
	if !ok {
		return
	}
	stats, err := s.deps.Insights.PageStats(r.Context(), pageID)
	if err != nil && !errors.Is(err, postgres.ErrNotFound) {
		s.storeError(w, "page insights", err)
		return
	}

	text, err := s.deps.Summarizer.Summarize(r.Context(), page, stats)
	if err != nil {
		s.logger.Error("summary generation failed", zap.String("page_id", pageID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "summary generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"page_id": pageID,
		"summary": text,
	})
}

// resolvePage fetches the page row or writes the 404/500 response,
// reporting whether the caller may proceed.
func (s *Server) resolvePage(w http.ResponseWriter, r *http.Request, pageID string) (*model.Page, bool) {
	page, err := s.deps.Pages.GetByPageID(r.Context(), pageID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			writeError(w, http.StatusNotFound, "page not found")
			return nil, false
		}
		s.storeError(w, "get page", err)
		return nil, false
	}
	return page, true
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "storage error")
}

func pageFilterFrom(r *http.Request) postgres.PageFilter {
	q := r.URL.Query()
	var filter postgres.PageFilter
	if v := q.Get("name"); v != "" {
		filter.Name = &v
	}
	if v := q.Get("industry"); v != "" {
		filter.Industry = &v
	}
	if v := q.Get("min_followers"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.MinFollowers = &n
		}
	}
	if v := q.Get("max_followers"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.MaxFollowers = &n
		}
	}
	return filter
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
