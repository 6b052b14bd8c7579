package notebooklm

import (
	"context"

	"quizgen/internal/logging"
	"quizgen/internal/services"
	"quizgen/internal/services/notebooklm/batchexecute"
)

// Notebook is a NotebookLM notebook as listed by the service.
type Notebook struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	SourceCount int    `json:"sourceCount"`
}

// Source is a document attached to a notebook.
type Source struct {
	ID         string `json:"id"`
	NotebookID string `json:"notebookId"`
	Title      string `json:"title"`
}

func notebookPath(notebookID string) string {
	return "/notebook/" + notebookID
}

// projectOptions is the client-capabilities tuple sent with create calls.
func projectOptions() []any {
	return []any{1, nil, nil, nil, nil, nil, nil, nil, nil, nil, []any{1}}
}

// CreateNotebook creates an empty notebook and returns its id.
func (c *Client) CreateNotebook(ctx context.Context, title string) (string, error) {
	params := []any{title, nil, nil, []any{2}, projectOptions()}
	result, err := c.call(ctx, batchexecute.RPCCreateNotebook, "/", params)
	if err != nil {
		return "", err
	}
	id := stringAt(result.Value, 2)
	if id == "" {
		id = stringAt(result.Value, 0, 2)
	}
	if id == "" {
		return "", services.Wrap(services.ErrProtocol, "notebooklm", "create notebook", "notebook id missing from response", nil)
	}
	c.logger.Info("notebook created",
		logging.String(logging.FieldEventType, "notebook_created"),
		logging.String(logging.FieldNotebookID, id),
		logging.String("title", title),
	)
	return id, nil
}

// AddTextSource attaches pasted text to a notebook and returns the source id.
func (c *Client) AddTextSource(ctx context.Context, notebookID, text, title string) (string, error) {
	if notebookID == "" {
		return "", services.Wrap(services.ErrValidation, "notebooklm", "add source", "notebook id is required", nil)
	}
	sourceData := []any{nil, []any{title, text}, nil, 2, nil, nil, nil, nil, nil, nil, 1}
	params := []any{[]any{sourceData}, notebookID, []any{2}, projectOptions()}
	result, err := c.call(ctx, batchexecute.RPCAddSource, notebookPath(notebookID), params)
	if err != nil {
		return "", err
	}
	id := stringAt(result.Value, 0, 0, 0, 0)
	if id == "" {
		id = firstString(result.Value)
	}
	if id == "" {
		return "", services.Wrap(services.ErrProtocol, "notebooklm", "add source", "source id missing from response", nil)
	}
	c.logger.Info("text source added",
		logging.String(logging.FieldEventType, "source_added"),
		logging.String(logging.FieldNotebookID, notebookID),
		logging.String("source_id", id),
		logging.Int("chars", len([]rune(text))),
	)
	return id, nil
}

// ListNotebooks returns the notebooks visible to the session.
func (c *Client) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	result, err := c.call(ctx, batchexecute.RPCListNotebooks, "/", []any{nil, 1, nil, []any{2}})
	if err != nil {
		return nil, err
	}
	items, _ := at(result.Value, 0).([]any)
	notebooks := make([]Notebook, 0, len(items))
	for _, item := range items {
		id := stringAt(item, 2)
		if id == "" {
			continue
		}
		sources, _ := at(item, 1).([]any)
		notebooks = append(notebooks, Notebook{ID: id, Title: stringAt(item, 0), SourceCount: len(sources)})
	}
	return notebooks, nil
}

// GetNotebookSources lists the sources attached to a notebook.
func (c *Client) GetNotebookSources(ctx context.Context, notebookID string) ([]Source, error) {
	params := []any{notebookID, nil, []any{2}, nil, 0}
	result, err := c.call(ctx, batchexecute.RPCGetNotebook, notebookPath(notebookID), params)
	if err != nil {
		return nil, err
	}
	if !result.Found {
		return nil, services.Wrap(services.ErrNotFound, "notebooklm", "get notebook", "notebook "+notebookID+" not returned", nil)
	}
	items, _ := at(result.Value, 0, 1).([]any)
	sources := make([]Source, 0, len(items))
	for _, item := range items {
		id := firstString(at(item, 0))
		if id == "" {
			continue
		}
		sources = append(sources, Source{ID: id, NotebookID: notebookID, Title: stringAt(item, 1)})
	}
	return sources, nil
}

// DeleteNotebook removes a notebook and its sources.
func (c *Client) DeleteNotebook(ctx context.Context, notebookID string) error {
	if notebookID == "" {
		return services.Wrap(services.ErrValidation, "notebooklm", "delete notebook", "notebook id is required", nil)
	}
	if _, err := c.call(ctx, batchexecute.RPCDeleteNotebook, "/", []any{[]any{notebookID}}); err != nil {
		return err
	}
	c.logger.Info("notebook deleted",
		logging.String(logging.FieldEventType, "notebook_deleted"),
		logging.String(logging.FieldNotebookID, notebookID),
	)
	return nil
}

// RefreshSession forces a session refresh outside the recovery path.
func (c *Client) RefreshSession(ctx context.Context) (bool, error) {
	return c.refresh(ctx)
}

// at walks nested arrays by index and returns nil when any step is missing.
func at(node any, path ...int) any {
	for _, idx := range path {
		arr, ok := node.([]any)
		if !ok || idx < 0 || idx >= len(arr) {
			return nil
		}
		node = arr[idx]
	}
	return node
}

func stringAt(node any, path ...int) string {
	s, _ := at(node, path...).(string)
	return s
}

// firstString returns the first non-empty string found depth-first.
func firstString(node any) string {
	switch v := node.(type) {
	case string:
		return v
	case []any:
		for _, child := range v {
			if s := firstString(child); s != "" {
				return s
			}
		}
	}
	return ""
}
