package config

import (
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/ifilter/ifadmin/internal/catalog"
	"github.com/ifilter/ifadmin/pkg/grid"
)

var (
	displayTypes = []grid.DisplayType{
		grid.TypeText, grid.TypeNumber, grid.TypeBoolean, grid.TypeEmail, grid.TypePhone,
		grid.TypeDate, grid.TypeDateTime, grid.TypeDateDeadline, grid.TypeLink, grid.TypeNavLink,
		grid.TypeViewDownload, grid.TypeDownload, grid.TypeImage, grid.TypeButton, grid.TypeCustom,
		grid.TypeStatus, grid.TypeEditable,
	}
	editorTypes = []grid.EditorType{
		grid.EditorDate, grid.EditorDateTime, grid.EditorNumber, grid.EditorEmail, grid.EditorPhone,
		grid.EditorSelect, grid.EditorBoolean, grid.EditorTextarea,
	}

	displayTypeType = reflect.TypeOf(grid.DisplayType(""))
	editorTypeType  = reflect.TypeOf(grid.EditorType(""))
	optionsType     = reflect.TypeOf([]grid.Option(nil))
)

// decodeHook is used for every unmarshal of the layered config.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		typeNameHook,
		optionsHook,
	)
}

// typeNameHook folds display and editor type names to their canonical
// spelling so "Boolean" and "phonenumber" work in YAML. Unknown names are
// passed through untouched.
func typeNameHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	s = strings.TrimSpace(s)
	switch to {
	case displayTypeType:
		for _, t := range displayTypes {
			if strings.EqualFold(string(t), s) {
				return t, nil
			}
		}
		return grid.DisplayType(s), nil
	case editorTypeType:
		for _, t := range editorTypes {
			if strings.EqualFold(string(t), s) {
				return t, nil
			}
		}
		return grid.EditorType(s), nil
	}
	return data, nil
}

// optionsHook accepts select options as a comma separated string, a list
// of plain values, or a list of {value, label} maps. Plain values get a
// label derived from the value.
func optionsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != optionsType {
		return data, nil
	}

	var items []any
	switch v := data.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	case []any:
		items = v
	default:
		return data, nil
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, map[string]any{"value": s, "label": catalog.Label(s)})
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
