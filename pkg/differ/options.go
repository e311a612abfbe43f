package differ

// Option is a functional option for configuring Differ
type Option func(*differ)

// WithIgnoredKeys sets keys to ignore during comparison
func WithIgnoredKeys(keys ...string) Option {
	return func(d *differ) {
		for _, key := range keys {
			d.ignoreKeys[key] = true
		}
	}
}
