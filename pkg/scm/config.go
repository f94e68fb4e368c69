package scm

// ServiceConfig is the persisted configuration of a service as read back
// from QueryServiceConfigW.
type ServiceConfig struct {
	ServiceType  ServiceType
	StartType    StartType
	ErrorControl ErrorControl
	// ExecutablePath is the launch command as stored, arguments included.
	ExecutablePath string
	LoadOrderGroup Optional[string]
	TagID          uint32
	Dependencies   []Dependency
	// AccountName is absent for some driver services.
	AccountName Optional[string]
	DisplayName string
}

// RawConfig mirrors QUERY_SERVICE_CONFIGW after its strings have been read.
// Nil pointers stand for null pointers in the OS record and Dependencies is
// the already split multi-string.
type RawConfig struct {
	ServiceType      uint32
	StartType        uint32
	ErrorControl     uint32
	BinaryPathName   string
	LoadOrderGroup   *string
	TagID            uint32
	Dependencies     []string
	ServiceStartName *string
	DisplayName      string
}

// DecodeConfig converts raw into a ServiceConfig.
func DecodeConfig(raw RawConfig) (ServiceConfig, error) {
	start, err := StartTypeFromRaw(raw.StartType)
	if err != nil {
		return ServiceConfig{}, err
	}
	ec, err := ErrorControlFromRaw(raw.ErrorControl)
	if err != nil {
		return ServiceConfig{}, err
	}

	cfg := ServiceConfig{
		ServiceType:    ServiceTypeFromRaw(raw.ServiceType),
		StartType:      start,
		ErrorControl:   ec,
		ExecutablePath: raw.BinaryPathName,
		TagID:          raw.TagID,
		Dependencies:   parseDependencies(raw.Dependencies),
		DisplayName:    raw.DisplayName,
	}
	if raw.LoadOrderGroup != nil && *raw.LoadOrderGroup != "" {
		cfg.LoadOrderGroup = Some(*raw.LoadOrderGroup)
	}
	if raw.ServiceStartName != nil {
		cfg.AccountName = Some(*raw.ServiceStartName)
	}
	return cfg, nil
}
