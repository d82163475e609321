package repository

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jarcoal/httpmock"
	"github.com/mailio/go-vault-server/types"
)

// implements Repository interface using CouchDB
type CouchDBRepository struct {
	client *resty.Client
	dbName string
}

func NewCouchDBRepository(url, DBName string, username string, password string, mock bool) (Repository, error) {
	cl := resty.New().SetBaseURL(url).SetTimeout(time.Second * 10)
	cl.SetHeader("Content-Type", "application/json")
	cl.SetHeader("Accept", "application/json")
	cl.SetHeader("User-Agent", "go-vault-server/1.0.0")
	cl.SetBasicAuth(username, password)

	if mock {
		httpmock.ActivateNonDefault(cl.GetClient())
	}

	existsRes, existsErr := cl.R().Head(DBName)
	if existsErr != nil {
		return nil, fmt.Errorf("failed to check if database exists: %w", existsErr)
	}
	if existsRes.StatusCode() == 200 {
		return &CouchDBRepository{cl, DBName}, nil
	}

	var ok types.OK
	var dbErr types.CouchDBError
	// create DB since it doesn't exist
	_, cErr := cl.R().SetResult(&ok).SetError(&dbErr).Put(DBName)
	if cErr != nil {
		return nil, fmt.Errorf("failed to create database %s: %w", DBName, cErr)
	}
	if dbErr.Error != "" {
		return nil, fmt.Errorf("failed to create database %s: %s", DBName, dbErr.Error)
	}
	if !ok.IsOK {
		return nil, fmt.Errorf("failed to create database %s", DBName)
	}
	return &CouchDBRepository{cl, DBName}, nil
}

func (c *CouchDBRepository) docPath(id string) string {
	return fmt.Sprintf("%s/%s", c.dbName, url.PathEscape(id))
}

// GetByID returns a document by its ID
func (c *CouchDBRepository) GetByID(ctx context.Context, id string) (interface{}, error) {
	response, err := c.client.R().SetContext(ctx).Get(c.docPath(id))
	if err != nil {
		return nil, err
	}
	if hErr := handleError(response); hErr != nil {
		return nil, hErr
	}
	return response, nil
}

// Save creates a new doc or updates an existing one (data must carry the current _rev when updating)
func (c *CouchDBRepository) Save(ctx context.Context, docID string, data interface{}) error {
	response, err := c.client.R().SetContext(ctx).SetBody(data).Put(c.docPath(docID))
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return handleError(response)
}

// Delete deletes a document by its ID
func (c *CouchDBRepository) Delete(ctx context.Context, id string) error {
	doc, err := c.GetByID(ctx, id)
	if err != nil {
		return err
	}
	var existing types.BaseDocument
	if mErr := MapToObject(doc, &existing); mErr != nil {
		return mErr
	}

	response, dErr := c.client.R().SetContext(ctx).SetQueryParam("rev", existing.Rev).Delete(c.docPath(id))
	if dErr != nil {
		return fmt.Errorf("failed to delete document: %w", dErr)
	}
	return handleError(response)
}

// return name of the database
func (c *CouchDBRepository) GetDBName() string {
	return c.dbName
}

// returns a resty client
func (c *CouchDBRepository) GetClient() interface{} {
	return c.client
}
