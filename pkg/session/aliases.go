package session

import "fmt"

// AliasConflictError is returned when saving an alias that is already bound
// in its scope without overwrite authorization.
type AliasConflictError struct {
	Kind  string
	Alias string
}

func (e *AliasConflictError) Error() string {
	return fmt.Sprintf("%s alias %q is already in use; use the --force flag to allow overwrite", e.Kind, e.Alias)
}

// TranslateManagementAlias resolves a global management-server alias. An
// input that is not a known alias is returned unchanged: callers accept raw
// addresses and aliases interchangeably, so pass-through is the contract,
// not an error.
func (d *Document) TranslateManagementAlias(addressOrAlias string) string {
	if addr, ok := d.ManagementAliases[addressOrAlias]; ok {
		return addr
	}
	return addressOrAlias
}

// SaveManagementAlias binds alias to address in the global scope.
func (d *Document) SaveManagementAlias(alias, address string, allowOverwrite bool) error {
	if _, exists := d.ManagementAliases[alias]; exists && !allowOverwrite {
		return &AliasConflictError{Kind: "management server", Alias: alias}
	}
	if d.ManagementAliases == nil {
		d.ManagementAliases = make(map[string]string)
	}
	d.ManagementAliases[alias] = address
	return nil
}

// TranslateContextualAlias resolves an alias of the given kind scoped to the
// given management server. Unknown inputs pass through unchanged.
func (d *Document) TranslateContextualAlias(kind, idOrAlias, address string) string {
	scope := d.contextualScope(kind, address)
	if scope == nil {
		return idOrAlias
	}
	if id, ok := scope[idOrAlias]; ok {
		return id
	}
	return idOrAlias
}

// SaveContextualAlias binds alias to id within the (address, kind) scope,
// creating intermediate scope entries as needed.
func (d *Document) SaveContextualAlias(kind, alias, id, address string, allowOverwrite bool) error {
	if d.ContextualAliases == nil {
		d.ContextualAliases = make(map[string]*ContextualAliases)
	}
	ctx := d.ContextualAliases[address]
	if ctx == nil {
		ctx = &ContextualAliases{}
		d.ContextualAliases[address] = ctx
	}

	scope, err := ctx.scope(kind)
	if err != nil {
		return err
	}
	if *scope == nil {
		*scope = make(map[string]string)
	}
	if _, exists := (*scope)[alias]; exists && !allowOverwrite {
		return &AliasConflictError{Kind: kind, Alias: alias}
	}
	(*scope)[alias] = id
	return nil
}

// AliasMapping returns a copy of the alias→id mapping of the given kind for
// one management server. The copy keeps callers from mutating session state
// behind the store's back.
func (d *Document) AliasMapping(kind, address string) map[string]string {
	scope := d.contextualScope(kind, address)
	out := make(map[string]string, len(scope))
	for alias, id := range scope {
		out[alias] = id
	}
	return out
}

// RemoveServerContext deletes all contextual aliases scoped to address and
// reports whether address was the active management server. When it was,
// the active address is cleared as well so the caller can warn the operator
// that no default server remains.
func (d *Document) RemoveServerContext(address string) bool {
	delete(d.ContextualAliases, address)
	if d.ManagementAddress == address {
		d.ManagementAddress = ""
		return true
	}
	return false
}

func (d *Document) contextualScope(kind, address string) map[string]string {
	ctx := d.ContextualAliases[address]
	if ctx == nil {
		return nil
	}
	switch kind {
	case KindBlueprints:
		return ctx.Blueprints
	case KindDeployments:
		return ctx.Deployments
	default:
		return nil
	}
}

func (c *ContextualAliases) scope(kind string) (*map[string]string, error) {
	switch kind {
	case KindBlueprints:
		return &c.Blueprints, nil
	case KindDeployments:
		return &c.Deployments, nil
	default:
		return nil, fmt.Errorf("unknown alias kind %q", kind)
	}
}
