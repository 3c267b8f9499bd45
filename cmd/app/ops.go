package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

type catalogSummaryOut struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Version      string        `json:"version"`
	LastModified string        `json:"lastModified"`
	Groups       []groupRefOut `json:"groups"`
}

type groupRefOut struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Class string `json:"class"`
}

type catalogPageOut struct {
	Catalog     catalogOut `json:"catalog"`
	TotalGroups int64      `json:"totalGroups"`
	HasMore     bool       `json:"hasMore"`
}

type catalogOut struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Version      string     `json:"version"`
	LastModified string     `json:"lastModified"`
	Groups       []groupOut `json:"groups"`
}

type groupOut struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Class    string          `json:"class"`
	Controls []controlRowOut `json:"controls"`
}

type groupPageOut struct {
	Group         groupOut `json:"group"`
	TotalControls int64    `json:"totalControls"`
	HasMore       bool     `json:"hasMore"`
}

type controlRowOut struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Class string `json:"class"`
}

type controlDetailOut struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Class        string           `json:"class"`
	BaseControl  *string          `json:"baseControl"`
	Parameters   []parameterOut   `json:"parameters"`
	Parts        []partOut        `json:"parts"`
	Enhancements []enhancementOut `json:"enhancements"`
	Links        []linkOut        `json:"links"`
}

type enhancementOut struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Class      string         `json:"class"`
	Parameters []parameterOut `json:"parameters"`
	Parts      []partOut      `json:"parts"`
}

type parameterOut struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type partOut struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Prose string    `json:"prose"`
	Parts []partOut `json:"parts"`
}

type linkOut struct {
	Rel      string         `json:"rel"`
	Href     string         `json:"href"`
	Outgoing bool           `json:"outgoing"`
	External bool           `json:"external"`
	Other    *controlRowOut `json:"other"`
}

func doCatalogsList(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg)
		return client.call(ctx, "catalogs.list", map[string]any{}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.get(ctx, "/api/catalogs", out)
}

func doCatalogGet(ctx context.Context, cfg cliConfig, catalogID string, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg)
		return client.call(ctx, "catalogs.get", map[string]any{"catalog_id": catalogID}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.get(ctx, "/api/catalogs/"+url.PathEscape(catalogID), out)
}

func doCatalogGetPage(ctx context.Context, cfg cliConfig, catalogID string, page, limit int, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg)
		return client.call(ctx, "catalogs.get", map[string]any{"catalog_id": catalogID, "page": page, "limit": limit}, out)
	}
	client := newAPIClient(cfg.Server)
	path := "/api/catalogs/" + url.PathEscape(catalogID) + "?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	return client.get(ctx, path, out)
}

func doGroupGet(ctx context.Context, cfg cliConfig, catalogID, groupID string, page, limit int, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg)
		params := map[string]any{"group_id": groupID, "page": page, "limit": limit}
		if catalogID != "" {
			params["catalog_id"] = catalogID
		}
		return client.call(ctx, "groups.get", params, out)
	}
	client := newAPIClient(cfg.Server)
	path := "/api/groups/" + url.PathEscape(groupID) + "?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	if catalogID != "" {
		path += "&catalog=" + url.QueryEscape(catalogID)
	}
	return client.get(ctx, path, out)
}

func doControlGet(ctx context.Context, cfg cliConfig, controlID string, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg)
		return client.call(ctx, "controls.get", map[string]any{"control_id": controlID}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.get(ctx, "/api/controls/"+url.PathEscape(controlID), out)
}

func doControlRelated(ctx context.Context, cfg cliConfig, controlID string, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg)
		return client.call(ctx, "controls.related", map[string]any{"control_id": controlID}, out)
	}
	client := newAPIClient(cfg.Server)
	return client.get(ctx, "/api/controls/"+url.PathEscape(controlID)+"/related", out)
}

func doImport(ctx context.Context, cfg cliConfig, file, typeTag string, out any) error {
	if cfg.Transport == "uds" {
		// The server reads the file itself, so the path must survive
		// the hop across processes.
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		client := newRPCClient(cfg)
		return client.call(ctx, "import.run", map[string]any{"path": abs, "type": typeTag}, out)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	client := newAPIClient(cfg.Server)
	path := "/api/catalogs/import?type=" + url.QueryEscape(typeTag)
	return client.request(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json", out)
}

func intToString(v int) string {
	return fmt.Sprintf("%d", v)
}
