package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-resty/resty/v2"
)

/**
* Object Mapper (from a repository response to object)
**/

func MapToObject(resp interface{}, obj interface{}) error {
	var data []byte
	switch response := resp.(type) {
	case *resty.Response:
		data = response.Body()
	case []byte:
		data = response
	default:
		return errors.New("resp is neither a resty.Response nor raw bytes")
	}

	// Check if obj is a pointer to a struct
	val := reflect.ValueOf(obj)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return errors.New("obj is not a pointer to a struct")
	}

	if err := json.Unmarshal(data, obj); err != nil {
		return fmt.Errorf("document cannot be mapped to %T: %w", obj, err)
	}
	return nil
}
