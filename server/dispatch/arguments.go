package dispatch

import (
	"encoding/json"
	"math"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
)

// arguments wraps the raw named arguments of a tool call with strict,
// typed accessors. Every violation becomes invalid_arguments before any
// component sees the call.
type arguments map[string]any

func (a arguments) requiredString(key string) (string, *contractx.Error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return "", contractx.NewError(contractx.KindInvalidArguments, "%s is required", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", contractx.NewError(contractx.KindInvalidArguments, "%s must be a string", key)
	}
	return s, nil
}

func (a arguments) optionalString(key string) (string, *contractx.Error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", contractx.NewError(contractx.KindInvalidArguments, "%s must be a string", key)
	}
	return s, nil
}

func (a arguments) optionalNumber(key string) (float64, *contractx.Error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return 0, nil
	}
	f, ok := toFloat64(raw)
	if !ok {
		return 0, contractx.NewError(contractx.KindInvalidArguments, "%s must be a number", key)
	}
	return f, nil
}

func (a arguments) optionalInt(key string) (int64, *contractx.Error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return 0, nil
	}
	n, ok := toInt64(raw)
	if !ok {
		return 0, contractx.NewError(contractx.KindInvalidArguments, "%s must be an integer", key)
	}
	return n, nil
}

// orderItems decodes the create_order items list: a non-empty array of
// {product_id, quantity} objects. Quantity must be an integer in shape;
// its sign and range are the order manager's business to judge.
func (a arguments) orderItems(key string) ([]contractx.OrderItem, *contractx.Error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return nil, contractx.NewError(contractx.KindInvalidArguments, "%s is required", key)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, contractx.NewError(contractx.KindInvalidArguments, "%s must be a list of items", key)
	}
	items := make([]contractx.OrderItem, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, contractx.NewError(contractx.KindInvalidArguments,
				"%s[%d] must be an object with product_id and quantity", key, i)
		}
		productID, ok := obj["product_id"].(string)
		if !ok {
			return nil, contractx.NewError(contractx.KindInvalidArguments,
				"%s[%d].product_id must be a string", key, i)
		}
		qty, ok := toInt64(obj["quantity"])
		if !ok {
			return nil, contractx.NewError(contractx.KindInvalidArguments,
				"%s[%d].quantity must be an integer", key, i)
		}
		items = append(items, contractx.OrderItem{ProductID: productID, Quantity: qty})
	}
	return items, nil
}

// checkKeys rejects arguments outside the tool's declared schema.
func (a arguments) checkKeys(allowed ...string) *contractx.Error {
	for key := range a {
		found := false
		for _, ok := range allowed {
			if key == ok {
				found = true
				break
			}
		}
		if !found {
			return contractx.NewError(contractx.KindInvalidArguments, "unexpected argument %q", key)
		}
	}
	return nil
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
