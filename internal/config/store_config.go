package config

type StoreConfig interface {
	GetStoreDriver() string
	GetDatabaseURL() string
	GetObjectStore() string
	GetSupabaseURL() string
	GetSupabaseServiceKey() string
	GetSupabaseBucket() string
}

type Store struct{}

var _ StoreConfig = Store{}

// GetStoreDriver is one of memory, sqlite or postgres.
func (Store) GetStoreDriver() string {
	return GetEnv("STORE_DRIVER", "memory")
}

func (s Store) GetDatabaseURL() string {
	def := ""
	if s.GetStoreDriver() == "sqlite" {
		def = "file:market.db?cache=shared"
	}
	return GetEnv("DATABASE_URL", def)
}

// GetObjectStore is one of fs, supabase or memory.
func (Store) GetObjectStore() string {
	return GetEnv("OBJECT_STORE", "fs")
}

func (Store) GetSupabaseURL() string {
	return GetEnv("SUPABASE_URL", "")
}

func (Store) GetSupabaseServiceKey() string {
	return GetEnv("SUPABASE_SERVICE_KEY", "")
}

func (Store) GetSupabaseBucket() string {
	return GetEnv("SUPABASE_BUCKET", "property-images")
}
