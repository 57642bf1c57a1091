package app

// SetStoreValue writes value under key in the named module store and
// commits it, bypassing every keeper.
func (app *App) SetStoreValue(storeKey string, key, value []byte) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.newContext().KVStore(app.keys[storeKey]).Set(key, value)
	app.commit()
}
