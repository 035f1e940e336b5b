package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/chinmay706/Secure-vault-frontend/internal/model"
)

// descriptorFields aliases the GraphQL schema's camelCase names onto the
// descriptor's JSON tags so responses decode straight into model types.
const descriptorFields = `
	id
	original_filename: originalFilename
	mime_type: mimeType
	size_bytes: sizeBytes
	folder_id: folderId
	is_public: isPublic
	tags
	created_at: createdAt
	updated_at: updatedAt
	share_link: shareLink {
		token
		is_active: isActive
		download_count: downloadCount
	}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// graphql posts a query to the GraphQL endpoint and decodes data into out.
func (c *Client) graphql(ctx context.Context, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GraphQLURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	envelope := struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql: %s", envelope.Errors[0].Message)
	}
	return json.Unmarshal(envelope.Data, out)
}

// ListFiles returns the files in a folder; an empty folderID means the root
// context.
func (c *Client) ListFiles(ctx context.Context, folderID string) ([]model.FileDescriptor, error) {
	vars := map[string]any{}
	if folderID != "" {
		vars["folderId"] = folderID
	}
	query := fmt.Sprintf(`query Files($folderId: ID) { files(folderId: $folderId) {%s} }`, descriptorFields)

	var data struct {
		Files []model.FileDescriptor `json:"files"`
	}
	if err := c.graphql(ctx, query, vars, &data); err != nil {
		return nil, err
	}
	return data.Files, nil
}

// GetFile returns a single descriptor by id.
func (c *Client) GetFile(ctx context.Context, fileID string) (*model.FileDescriptor, error) {
	query := fmt.Sprintf(`query File($id: ID!) { file(id: $id) {%s} }`, descriptorFields)

	var data struct {
		File *model.FileDescriptor `json:"file"`
	}
	if err := c.graphql(ctx, query, map[string]any{"id": fileID}, &data); err != nil {
		return nil, err
	}
	if data.File == nil {
		return nil, &StatusError{StatusCode: http.StatusNotFound, Message: "file not found"}
	}
	return data.File, nil
}

// ListFolders returns the user's folders.
func (c *Client) ListFolders(ctx context.Context) ([]model.FolderDescriptor, error) {
	query := `query Folders { folders {
		id
		name
		file_count: fileCount
		created_at: createdAt
		updated_at: updatedAt
		share_link: shareLink {
			token
			is_active: isActive
			download_count: downloadCount
		}
	} }`

	var data struct {
		Folders []model.FolderDescriptor `json:"folders"`
	}
	if err := c.graphql(ctx, query, nil, &data); err != nil {
		return nil, err
	}
	return data.Folders, nil
}

// TrashedFiles returns the files currently in the trash.
func (c *Client) TrashedFiles(ctx context.Context) ([]model.FileDescriptor, error) {
	query := fmt.Sprintf(`query Trash { trashedFiles {%s} }`, descriptorFields)

	var data struct {
		Files []model.FileDescriptor `json:"trashedFiles"`
	}
	if err := c.graphql(ctx, query, nil, &data); err != nil {
		return nil, err
	}
	for i := range data.Files {
		data.Files[i].IsTrashed = true
	}
	return data.Files, nil
}
