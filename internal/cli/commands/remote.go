package commands

import (
	"StuffTracker/internal/cli/api"
	"StuffTracker/internal/config"
	"StuffTracker/internal/middleware"
	"context"
	"fmt"
	"time"
)

// cliSubject: subject токенов, которые CLI выпускает для себя.
const cliSubject = "stcli"

const defaultTokenTTL = 24 * time.Hour

type tokenCmd struct{}

func (tokenCmd) Name() string        { return "token" }
func (tokenCmd) Description() string { return "Выпустить JWT для HTTP API (секрет AUTH_SECRET)" }
func (tokenCmd) Usage() string       { return "token <subject> [ttl]" }

func (tokenCmd) Run(_ context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 || args[0] == "" {
		return ErrUsage
	}
	ttl := defaultTokenTTL
	if len(args) == 2 {
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return ErrUsage
		}
		ttl = d
	}
	tok, err := middleware.IssueToken(args[0], cfg.AuthSecret, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, tok)
	return nil
}

// newRemoteClient создаёт клиента к серверу по cfg.BaseURL с токеном на короткий срок.
func newRemoteClient(cfg *config.Config) (*api.Client, error) {
	tok, err := middleware.IssueToken(cliSubject, cfg.AuthSecret, time.Minute)
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.BaseURL, tok), nil
}

type remoteStatusCmd struct{}

func (remoteStatusCmd) Name() string        { return "remote-status" }
func (remoteStatusCmd) Description() string { return "Состояние БД на сервере" }
func (remoteStatusCmd) Usage() string       { return "remote-status" }

func (remoteStatusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	c, err := newRemoteClient(cfg)
	if err != nil {
		return err
	}
	var st struct {
		Path          string `json:"path"`
		Exists        bool   `json:"exists"`
		Version       int    `json:"version"`
		TargetVersion int    `json:"target_version"`
		Policy        string `json:"policy"`
	}
	if err := c.GetJSON(ctx, "/api/db/status", &st); err != nil {
		return err
	}
	fmt.Fprintf(Out, "path:    %s\n", st.Path)
	fmt.Fprintf(Out, "exists:  %t\n", st.Exists)
	fmt.Fprintf(Out, "version: %d (target %d, %s)\n", st.Version, st.TargetVersion, st.Policy)
	return nil
}

type remoteExportCmd struct{}

func (remoteExportCmd) Name() string { return "remote-export" }
func (remoteExportCmd) Description() string {
	return "Экспорт БД на стороне сервера (путь на сервере)"
}
func (remoteExportCmd) Usage() string { return "remote-export [path]" }

func (remoteExportCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	req := map[string]string{}
	if len(args) == 1 {
		req["path"] = args[0]
	}
	return remotePath(ctx, cfg, "/api/db/export", req, "Exported to")
}

type remoteImportCmd struct{}

func (remoteImportCmd) Name() string { return "remote-import" }
func (remoteImportCmd) Description() string {
	return "Импорт БД на стороне сервера (путь на сервере)"
}
func (remoteImportCmd) Usage() string { return "remote-import <path>" }

func (remoteImportCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return ErrUsage
	}
	return remotePath(ctx, cfg, "/api/db/import", map[string]string{"path": args[0]}, "Imported from")
}

func remotePath(ctx context.Context, cfg *config.Config, path string, req map[string]string, verb string) error {
	c, err := newRemoteClient(cfg)
	if err != nil {
		return err
	}
	var resp struct {
		Path string `json:"path"`
	}
	if err := c.PostJSON(ctx, path, req, &resp); err != nil {
		return err
	}
	fmt.Fprintf(Out, "%s %s\n", verb, resp.Path)
	return nil
}

func init() {
	RegisterCmd(tokenCmd{})
	RegisterCmd(remoteStatusCmd{})
	RegisterCmd(remoteExportCmd{})
	RegisterCmd(remoteImportCmd{})
}
