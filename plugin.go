package surf

// Plugin extends the engine through its public surface: lifecycle events,
// state access, modules, and pulses. Plugins never reach into engine
// internals.
type Plugin interface {
	// Name identifies the plugin; installation is idempotent per name.
	Name() string

	// Install wires the plugin against the engine.
	Install(*Engine) error
}

// Use installs a plugin. Installing a plugin whose name is already
// installed is a no-op.
func (e *Engine) Use(p Plugin) error {
	e.mu.Lock()
	if _, ok := e.plugins[p.Name()]; ok {
		e.mu.Unlock()
		return nil
	}
	e.plugins[p.Name()] = p
	e.mu.Unlock()

	// Install runs unlocked so the plugin can use the public facade.
	if err := p.Install(e); err != nil {
		e.mu.Lock()
		delete(e.plugins, p.Name())
		e.mu.Unlock()
		return err
	}
	return nil
}
