package ddbstore

// PutOptions holds the preconditions of a Put. Backends resolve them with ApplyPutOptions.
type PutOptions struct {
	RequireAbsent bool
}

// PutOption configures a Put.
type PutOption func(*PutOptions)

// RequireAbsent makes Put fail with an *AlreadyExistsError instead of
// replacing a record that already occupies the identity.
func RequireAbsent() PutOption {
	return func(o *PutOptions) {
		o.RequireAbsent = true
	}
}

// DeleteOptions holds the preconditions of a Delete. Backends resolve them with ApplyDeleteOptions.
type DeleteOptions struct {
	RequireExists bool
	EntityType    string
}

// DeleteOption configures a Delete.
type DeleteOption func(*DeleteOptions)

// RequireExists makes Delete fail with a *NotFoundError when no record
// occupies the identity.
func RequireExists() DeleteOption {
	return func(o *DeleteOptions) {
		o.RequireExists = true
	}
}

// WithEntityType sets the type reported by a *NotFoundError.
func WithEntityType(typ string) DeleteOption {
	return func(o *DeleteOptions) {
		o.EntityType = typ
	}
}

func ApplyPutOptions(opts []PutOption) PutOptions {
	var o PutOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func ApplyDeleteOptions(opts []DeleteOption) DeleteOptions {
	var o DeleteOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
