package codec

import "fmt"

// InitArgs mirrors the msgpack map the host passes to the init control
// entry: {dev, sdk, upstream_id?, pkg_names, hfn_config_path?,
// worker_threads?}. The three optional fields use a Has flag rather
// than a zero value standing in for "absent", since an empty string or
// a worker count of zero are both otherwise valid values.
type InitArgs struct {
	Dev     bool
	SDK     string
	PkgNames []string

	UpstreamID    string
	HasUpstreamID bool

	HfnConfigPath    string
	HasHfnConfigPath bool

	WorkerThreads    uint32
	HasWorkerThreads bool
}

// EncodeInitArgs builds the msgpack bytes for a.
func EncodeInitArgs(a InitArgs) []byte {
	m := map[string]Value{
		"dev": a.Dev,
		"sdk": a.SDK,
	}
	names := make([]Value, len(a.PkgNames))
	for i, n := range a.PkgNames {
		names[i] = n
	}
	m["pkg_names"] = names

	if a.HasUpstreamID {
		m["upstream_id"] = a.UpstreamID
	} else {
		m["upstream_id"] = nil
	}
	if a.HasHfnConfigPath {
		m["hfn_config_path"] = a.HfnConfigPath
	} else {
		m["hfn_config_path"] = nil
	}
	if a.HasWorkerThreads {
		m["worker_threads"] = a.WorkerThreads
	} else {
		m["worker_threads"] = nil
	}

	return EncodeValue(nil, m)
}

// DecodeInitArgs parses the bytes the host passed to init.
func DecodeInitArgs(data []byte) (InitArgs, error) {
	v, _, err := DecodeValue(data, 0)
	if err != nil {
		return InitArgs{}, fmt.Errorf("decode init args: %w", err)
	}
	m, ok := v.(map[string]Value)
	if !ok {
		return InitArgs{}, fmt.Errorf("decode init args: top-level value is not a map")
	}

	var a InitArgs
	if dev, ok := m["dev"].(bool); ok {
		a.Dev = dev
	}
	if sdk, ok := m["sdk"].(string); ok {
		a.SDK = sdk
	}
	if names, ok := m["pkg_names"].([]Value); ok {
		a.PkgNames = make([]string, 0, len(names))
		for _, n := range names {
			if s, ok := n.(string); ok {
				a.PkgNames = append(a.PkgNames, s)
			}
		}
	}
	if s, ok := m["upstream_id"].(string); ok {
		a.UpstreamID, a.HasUpstreamID = s, true
	}
	if s, ok := m["hfn_config_path"].(string); ok {
		a.HfnConfigPath, a.HasHfnConfigPath = s, true
	}
	if n, ok := m["worker_threads"].(int64); ok {
		a.WorkerThreads, a.HasWorkerThreads = uint32(n), true //nolint:gosec // config-bounded value.
	}

	return a, nil
}

// InitResult mirrors the msgpack map emitted by init once the config
// file has been loaded and projected: {upstream_id, packages, modules,
// models, hfns, rpcs, schemas, fields}. Each of the seven projection
// lists is a slice of generic Values built by the config package; the
// codec only knows how to serialize them, not what they mean.
type InitResult struct {
	UpstreamID string
	Packages   []Value
	Modules    []Value
	Models     []Value
	Hfns       []Value
	Rpcs       []Value
	Schemas    []Value
	Fields     []Value
}

// EncodeInitResult builds the msgpack bytes for r.
func EncodeInitResult(r InitResult) []byte {
	m := map[string]Value{
		"upstream_id": r.UpstreamID,
		"packages":    r.Packages,
		"modules":     r.Modules,
		"models":      r.Models,
		"hfns":        r.Hfns,
		"rpcs":        r.Rpcs,
		"schemas":     r.Schemas,
		"fields":      r.Fields,
	}
	return EncodeValue(nil, m)
}

// DecodeInitResult parses the bytes init emits, mainly used by tests
// that verify the projection round-trips.
func DecodeInitResult(data []byte) (InitResult, error) {
	v, _, err := DecodeValue(data, 0)
	if err != nil {
		return InitResult{}, fmt.Errorf("decode init result: %w", err)
	}
	m, ok := v.(map[string]Value)
	if !ok {
		return InitResult{}, fmt.Errorf("decode init result: top-level value is not a map")
	}

	r := InitResult{}
	if s, ok := m["upstream_id"].(string); ok {
		r.UpstreamID = s
	}
	r.Packages, _ = m["packages"].([]Value)
	r.Modules, _ = m["modules"].([]Value)
	r.Models, _ = m["models"].([]Value)
	r.Hfns, _ = m["hfns"].([]Value)
	r.Rpcs, _ = m["rpcs"].([]Value)
	r.Schemas, _ = m["schemas"].([]Value)
	r.Fields, _ = m["fields"].([]Value)
	return r, nil
}
