package connection

// genericKeyField is the provider field that carries the API key for toolkits
// with no override.
const genericKeyField = "api_key"

// apiKeyOverride describes a toolkit whose provider expects a non-standard
// API key submission.
type apiKeyOverride struct {
	// field is the provider field name that receives the key.
	field string

	// combineWith names a caller-supplied extra field whose value is joined
	// with the key into field as "<extra>|<key>". Used by providers that take
	// the instance URL and key as one combined value.
	combineWith string
}

// apiKeyOverrides maps toolkit slugs to their field remapping. Toolkits not
// listed here use the generic api_key field plus whatever required fields the
// provider declares.
var apiKeyOverrides = map[string]apiKeyOverride{
	// Weaviate cloud expects the cluster URL and key as a single field.
	"weaviate": {field: "url_and_api_key", combineWith: "cluster_url"},
	// Zendesk names its key field after the token type.
	"zendesk": {field: "api_token"},
}

// buildAPIKeyFields assembles the provider field map for an API-key
// initiation: toolkit-specific renames first, then the provider-declared
// required fields filled from caller extras or the provider's own defaults.
// A required field with no value from any source fails with
// *MissingCredentialError naming the field; no connection is created.
func buildAPIKeyFields(toolkitSlug, apiKey string, extra map[string]string, declared []AuthField) (map[string]string, error) {
	fields := make(map[string]string, len(extra)+1)

	keyField := genericKeyField
	consumed := ""
	if ov, ok := apiKeyOverrides[toolkitSlug]; ok {
		keyField = ov.field
		if ov.combineWith != "" {
			prefix := extra[ov.combineWith]
			if prefix == "" {
				return nil, &MissingCredentialError{ToolkitSlug: toolkitSlug, Field: ov.combineWith}
			}
			fields[keyField] = prefix + "|" + apiKey
			consumed = ov.combineWith
		}
	}
	if fields[keyField] == "" {
		fields[keyField] = apiKey
	}

	for name, value := range extra {
		if name != keyField && name != consumed {
			fields[name] = value
		}
	}

	for _, f := range declared {
		if f.Name == keyField || fields[f.Name] != "" {
			continue
		}
		switch {
		case f.Default != "":
			fields[f.Name] = f.Default
		case f.Required:
			return nil, &MissingCredentialError{ToolkitSlug: toolkitSlug, Field: f.Name}
		}
	}

	return fields, nil
}

// fieldNames returns the keys of a field map for logging. Values are never
// logged; they may contain secrets.
func fieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	return names
}
