package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/FoxxDev-Collab/controlgraph/internal/application"
	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
	"github.com/FoxxDev-Collab/controlgraph/internal/oscal"
)

type Server struct {
	service  *application.CatalogService
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  any         `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, service *application.CatalogService) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "catalogs.list":
		out, err := s.service.ListCatalogs(ctx)
		if err != nil {
			return internalError(req.ID, err)
		}
		views := make([]catalogSummaryView, 0, len(out))
		for _, item := range out {
			views = append(views, toCatalogSummaryView(item))
		}
		return response{JSONRPC: "2.0", Result: views, ID: req.ID}
	case "catalogs.get":
		var p struct {
			CatalogID string `json:"catalog_id"`
			Page      *int   `json:"page"`
			Limit     *int   `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		// Either parameter alone requests pagination, matching the HTTP
		// adapter; the absent one falls back to the clamped default.
		if p.Page == nil && p.Limit == nil {
			out, err := s.service.GetCatalog(ctx, p.CatalogID)
			if err != nil {
				return appError(req.ID, err)
			}
			return response{JSONRPC: "2.0", Result: toCatalogSummaryView(out), ID: req.ID}
		}
		var params application.PageParams
		if p.Page != nil {
			params.Page = *p.Page
		}
		if p.Limit != nil {
			params.Limit = *p.Limit
		}
		out, err := s.service.GetCatalogPage(ctx, p.CatalogID, params)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: toCatalogPageView(out), ID: req.ID}
	case "groups.get":
		var p struct {
			CatalogID string `json:"catalog_id"`
			GroupID   string `json:"group_id"`
			Page      int    `json:"page"`
			Limit     int    `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetGroupPage(ctx, p.CatalogID, p.GroupID, application.PageParams{Page: p.Page, Limit: p.Limit})
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: toGroupPageView(out), ID: req.ID}
	case "controls.get":
		var p struct {
			ControlID string `json:"control_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetControlDetail(ctx, p.ControlID)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: toControlDetailView(out), ID: req.ID}
	case "controls.related":
		var p struct {
			ControlID string `json:"control_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.RelatedControls(ctx, p.ControlID)
		if err != nil {
			return appError(req.ID, err)
		}
		views := make([]controlSummaryView, 0, len(out))
		for _, item := range out {
			views = append(views, controlSummaryView(item))
		}
		return response{JSONRPC: "2.0", Result: views, ID: req.ID}
	case "import.run":
		var p struct {
			Path string `json:"path"`
			Type string `json:"type"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		data, err := os.ReadFile(p.Path)
		if err != nil {
			return appError(req.ID, fmt.Errorf("read %s: %w", p.Path, err))
		}
		result, err := s.service.Ingest(ctx, data, p.Type)
		if err != nil {
			var schemaErr *oscal.SchemaError
			if errors.As(err, &schemaErr) {
				return response{JSONRPC: "2.0", Error: &rpcError{Code: 42200, Message: schemaErr.Error()}, ID: req.ID}
			}
			return internalError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: result, ID: req.ID}
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

func appError(id any, err error) response {
	if errors.Is(err, domain.ErrNotFound) {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40400, Message: "not found"}, ID: id}
	}
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 40000, Message: err.Error()}, ID: id}
}

func internalError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 50000, Message: fmt.Sprintf("internal error: %v", err)}, ID: id}
}
