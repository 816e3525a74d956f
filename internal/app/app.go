// Package app assembles a client workspace from configuration: the remote
// authority, the local key pair, the pending key queue and the edit
// session controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"arbor/internal/adapters/clipboard"
	"arbor/internal/adapters/crypto"
	"arbor/internal/adapters/editor"
	"arbor/internal/adapters/remote"
	"arbor/internal/adapters/sqlite"
	"arbor/internal/application"
	"arbor/internal/application/keys"
	"arbor/internal/application/session"
	"arbor/internal/config"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

// App is a ready-to-use client workspace.
type App struct {
	Config    *config.Config
	Authority ports.Authority
	Box       *crypto.Box
	Queue     *sqlite.Queue
	Keys      *keys.Distributor
	Workspace *application.Workspace
	Sessions  *session.Controller
	Clipboard ports.ClipboardReader
	Editor    ports.EditorOpener
	Logger    *slog.Logger
}

// Open connects to the configured authority and loads the user's home
// node as the initial view.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}
	client, err := remote.New(remote.Config{
		URL:           cfg.Client.Server,
		APIKey:        cfg.Client.APIKey,
		User:          cfg.Client.User,
		AllowInsecure: cfg.Client.AllowInsecure,
		Timeout:       timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create authority client: %w", err)
	}
	return OpenWith(ctx, cfg, client, logger)
}

// OpenWith builds the workspace on an already constructed authority.
func OpenWith(ctx context.Context, cfg *config.Config, authority ports.Authority, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	box, err := crypto.LoadOrCreate(cfg.Keys.PrivateKey, cfg.Keys.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load key pair: %w", err)
	}
	queue, err := sqlite.OpenQueue(cfg.QueuePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open pending key queue: %w", err)
	}

	home, err := authority.RenderNode(ctx, ports.RenderNodeRequest{NodeID: ports.HomeNodeID})
	if err != nil {
		queue.Close()
		return nil, fmt.Errorf("failed to load home node: %w", err)
	}
	if err := application.CheckSuccess(ports.OpRenderNode, home.ResponseBase); err != nil {
		queue.Close()
		return nil, err
	}
	if home.Node == nil {
		queue.Close()
		return nil, errors.New("authority returned no home node")
	}

	user := cfg.Client.User
	ws, err := application.NewWorkspace(application.Config{
		Authority: authority,
		Encryptor: box,
		Identity: application.Identity{
			UserName:      user,
			UserNodeID:    home.Node.ID,
			IsAdmin:       user == domain.PrincipalAdmin,
			IsAnonymous:   user == "" || user == domain.PrincipalAnonymous,
			IsTestAccount: cfg.Client.TestAccount,
		},
		Preferences: application.Preferences{
			EditMode:     cfg.Preferences.EditMode,
			ShowReadOnly: cfg.Preferences.ShowReadOnly,
		},
		HomeNodeID: home.Node.ID,
		Logger:     logger,
	})
	if err != nil {
		queue.Close()
		return nil, err
	}
	ws.View.Load(home.Node, home.Children)

	dist := keys.NewDistributor(authority, box, queue).WithLogger(logger)
	return &App{
		Config:    cfg,
		Authority: authority,
		Box:       box,
		Queue:     queue,
		Keys:      dist,
		Workspace: ws,
		Sessions:  session.NewController(ws, dist),
		Clipboard: clipboard.NewSystem(),
		Editor:    editor.NewOpener(),
		Logger:    logger,
	}, nil
}

// Close releases the pending key queue.
func (a *App) Close() error {
	return a.Queue.Close()
}

// Focus makes the node identified by id part of the view: its parent
// becomes the view root and the node is highlighted. The home node and
// the repository root are shown as the view root instead. An empty id
// keeps the current view.
func (a *App) Focus(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	view := a.Workspace.View
	if _, ok := a.Workspace.Cache.Get(id); ok && id != view.RootID() {
		view.Highlight(id)
		return nil
	}

	res, err := a.Authority.RenderNode(ctx, ports.RenderNodeRequest{NodeID: id})
	if err != nil {
		return fmt.Errorf("failed to render node %s: %w", id, err)
	}
	if err := application.CheckSuccess(ports.OpRenderNode, res.ResponseBase); err != nil {
		return err
	}
	if res.Node == nil {
		return &application.UnresolvableReferenceError{NodeID: id, Op: "focus"}
	}
	if res.Node.ParentID == "" || res.Node.ID == a.Workspace.HomeNodeID {
		view.Load(res.Node, res.Children)
		return nil
	}
	if err := view.Navigate(ctx, res.Node.ParentID); err != nil {
		return err
	}
	view.Highlight(id)
	return nil
}

// Enter makes the node identified by id the view root.
func (a *App) Enter(ctx context.Context, id string) error {
	return a.Workspace.View.Navigate(ctx, id)
}
