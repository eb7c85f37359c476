package util_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/autom8ter/querykit/util"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestUtil(t *testing.T) {
	t.Run("yaml / json conversions", func(t *testing.T) {
		value := map[string]any{
			"_id":  gofakeit.UUID(),
			"name": gofakeit.Name(),
			"contact": map[string]any{
				"email": gofakeit.Email(),
			},
		}
		bits, err := json.Marshal(value)
		assert.Nil(t, err)
		yml, err := util.JSONToYAML(bits)
		assert.Nil(t, err)
		jsonData, err := util.YAMLToJSON(yml)
		assert.Nil(t, err)
		assert.JSONEq(t, string(bits), string(jsonData))
	})
	t.Run("json passes through yaml conversion", func(t *testing.T) {
		bits := []byte(`{"name": "jane"}`)
		jsonData, err := util.YAMLToJSON(bits)
		assert.Nil(t, err)
		assert.Equal(t, bits, jsonData)
	})
	t.Run("json string", func(t *testing.T) {
		assert.Equal(t, `{"name":"jane"}`, util.JSONString(map[string]any{"name": "jane"}))
		assert.Equal(t, `"jane"`, util.JSONString("jane"))
		assert.Equal(t, `30`, util.JSONString(30))
	})
	t.Run("decode", func(t *testing.T) {
		type config struct {
			Name    string        `json:"name"`
			Limit   int           `json:"limit"`
			Timeout time.Duration `json:"timeout"`
		}
		var c config
		assert.Nil(t, util.Decode(map[string]any{
			"name":    "jane",
			"limit":   "25",
			"timeout": "5s",
		}, &c))
		assert.Equal(t, "jane", c.Name)
		assert.Equal(t, 25, c.Limit)
		assert.Equal(t, 5*time.Second, c.Timeout)
	})
	t.Run("validate", func(t *testing.T) {
		type usr struct {
			Name string `validate:"required"`
		}
		var u = usr{}
		assert.NotNil(t, util.ValidateStruct(&u))
		u.Name = "a name"
		assert.Nil(t, util.ValidateStruct(&u))
	})
}
