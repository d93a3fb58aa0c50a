package convert

import (
	"time"

	"github.com/hivekv/hive/internal/native"
)

// Policy parsing: each family recognizes its own option names and
// ignores everything else, so callers can share one options map across
// operation families. A recognized option with the wrong value type is
// a parameter error. Policies are parsed once per call and never
// mutated afterwards.

// ReadPolicyFromMap parses a dynamic read policy {timeout, key}.
// A nil map yields defaults.
func ReadPolicyFromMap(m map[string]any) (*native.ReadPolicy, *native.Error) {
	p := native.NewReadPolicy()
	if m == nil {
		return p, nil
	}
	if err := parseTimeout(m, &p.Timeout); err != nil {
		return nil, err
	}
	if err := parseKeyPolicy(m, &p.Key); err != nil {
		return nil, err
	}
	return p, nil
}

// WritePolicyFromMap parses a dynamic write policy
// {timeout, key, gen, exists, commitLevel}. A nil map yields defaults.
func WritePolicyFromMap(m map[string]any) (*native.WritePolicy, *native.Error) {
	p := native.NewWritePolicy()
	if m == nil {
		return p, nil
	}
	if err := parseTimeout(m, &p.Timeout); err != nil {
		return nil, err
	}
	if err := parseKeyPolicy(m, &p.Key); err != nil {
		return nil, err
	}
	if err := parseGenPolicy(m, &p.Gen); err != nil {
		return nil, err
	}
	if err := parseExistsPolicy(m, &p.Exists); err != nil {
		return nil, err
	}
	if err := parseCommitLevel(m, &p.CommitLevel); err != nil {
		return nil, err
	}
	return p, nil
}

// RemovePolicyFromMap parses a dynamic remove policy
// {timeout, gen, generation}. A nil map yields defaults.
func RemovePolicyFromMap(m map[string]any) (*native.RemovePolicy, *native.Error) {
	p := native.NewRemovePolicy()
	if m == nil {
		return p, nil
	}
	if err := parseTimeout(m, &p.Timeout); err != nil {
		return nil, err
	}
	if err := parseGenPolicy(m, &p.Gen); err != nil {
		return nil, err
	}
	if raw, ok := m["generation"]; ok {
		n, isInt := asInt64(raw)
		if !isInt || n < 0 || n > 65535 {
			return nil, native.ParamError("policy generation must be a uint16, got %v", raw)
		}
		p.Generation = uint16(n)
	}
	return p, nil
}

// OperatePolicyFromMap parses a dynamic operate policy
// {timeout, key, gen, commitLevel}. A nil map yields defaults.
func OperatePolicyFromMap(m map[string]any) (*native.OperatePolicy, *native.Error) {
	p := native.NewOperatePolicy()
	if m == nil {
		return p, nil
	}
	if err := parseTimeout(m, &p.Timeout); err != nil {
		return nil, err
	}
	if err := parseKeyPolicy(m, &p.Key); err != nil {
		return nil, err
	}
	if err := parseGenPolicy(m, &p.Gen); err != nil {
		return nil, err
	}
	if err := parseCommitLevel(m, &p.CommitLevel); err != nil {
		return nil, err
	}
	return p, nil
}

// BatchPolicyFromMap parses a dynamic batch policy {timeout}.
// A nil map yields defaults.
func BatchPolicyFromMap(m map[string]any) (*native.BatchPolicy, *native.Error) {
	p := native.NewBatchPolicy()
	if m == nil {
		return p, nil
	}
	if err := parseTimeout(m, &p.Timeout); err != nil {
		return nil, err
	}
	return p, nil
}

// parseTimeout reads the "timeout" option in milliseconds.
func parseTimeout(m map[string]any, out *time.Duration) *native.Error {
	raw, ok := m["timeout"]
	if !ok {
		return nil
	}
	n, isInt := asInt64(raw)
	if !isInt || n < 0 {
		return native.ParamError("policy timeout must be a non-negative integer (milliseconds), got %v", raw)
	}
	*out = time.Duration(n) * time.Millisecond
	return nil
}

func parseKeyPolicy(m map[string]any, out *native.KeyPolicy) *native.Error {
	raw, ok := m["key"]
	if !ok {
		return nil
	}
	s, isStr := raw.(string)
	if !isStr {
		return native.ParamError("policy key must be a string, got %T", raw)
	}
	switch s {
	case "digest":
		*out = native.KeyDigest
	case "send":
		*out = native.KeySend
	default:
		return native.ParamError("policy key must be %q or %q, got %q", "digest", "send", s)
	}
	return nil
}

func parseGenPolicy(m map[string]any, out *native.GenPolicy) *native.Error {
	raw, ok := m["gen"]
	if !ok {
		return nil
	}
	s, isStr := raw.(string)
	if !isStr {
		return native.ParamError("policy gen must be a string, got %T", raw)
	}
	switch s {
	case "ignore":
		*out = native.GenIgnore
	case "eq":
		*out = native.GenEqual
	case "gt":
		*out = native.GenGreater
	default:
		return native.ParamError("policy gen must be one of ignore, eq, gt; got %q", s)
	}
	return nil
}

func parseExistsPolicy(m map[string]any, out *native.ExistsPolicy) *native.Error {
	raw, ok := m["exists"]
	if !ok {
		return nil
	}
	s, isStr := raw.(string)
	if !isStr {
		return native.ParamError("policy exists must be a string, got %T", raw)
	}
	switch s {
	case "ignore":
		*out = native.ExistsIgnore
	case "create":
		*out = native.ExistsCreate
	case "update":
		*out = native.ExistsUpdate
	case "replace":
		*out = native.ExistsReplace
	case "createOrReplace":
		*out = native.ExistsCreateOrReplace
	default:
		return native.ParamError("policy exists must be one of ignore, create, update, replace, createOrReplace; got %q", s)
	}
	return nil
}

func parseCommitLevel(m map[string]any, out *native.CommitLevel) *native.Error {
	raw, ok := m["commitLevel"]
	if !ok {
		return nil
	}
	s, isStr := raw.(string)
	if !isStr {
		return native.ParamError("policy commitLevel must be a string, got %T", raw)
	}
	switch s {
	case "all":
		*out = native.CommitAll
	case "master":
		*out = native.CommitMaster
	default:
		return native.ParamError("policy commitLevel must be %q or %q, got %q", "all", "master", s)
	}
	return nil
}
