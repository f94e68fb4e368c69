package scm

import (
	"errors"

	"github.com/warpdl/svcctl/pkg/wstr"
)

// Account is the identity a service runs as.
type Account struct {
	Name     string
	Password string
}

// ServiceInfo describes a service to create or reconfigure.
type ServiceInfo struct {
	// Name is the lookup key and cannot be changed after creation.
	Name        string
	DisplayName string

	ServiceType  ServiceType
	StartType    StartType
	ErrorControl ErrorControl

	ExecutablePath string
	// LaunchArguments are escaped and appended to ExecutablePath. Drivers
	// must not have any.
	LaunchArguments []string
	Dependencies    []Dependency

	// Account is nil for LocalSystem.
	Account *Account
}

// RawInfo holds the wire buffers for CreateServiceW and ChangeServiceConfigW.
// Nil buffers are passed as null pointers.
type RawInfo struct {
	Name          []uint16
	DisplayName   []uint16
	ServiceType   uint32
	StartType     uint32
	ErrorControl  uint32
	LaunchCommand []uint16
	Dependencies  []uint16
	AccountName   []uint16
	Password      []uint16
}

// Validate reports whether i can be encoded.
func (i ServiceInfo) Validate() error {
	_, err := i.Encode()
	return err
}

// Encode converts i to its wire buffers.
func (i ServiceInfo) Encode() (RawInfo, error) {
	var (
		raw RawInfo
		err error
	)
	if raw.Name, err = encodeField("name", -1, i.Name); err != nil {
		return RawInfo{}, err
	}
	if raw.DisplayName, err = encodeField("display name", -1, i.DisplayName); err != nil {
		return RawInfo{}, err
	}
	if raw.LaunchCommand, err = i.launchCommand(); err != nil {
		return RawInfo{}, err
	}

	ids := dependencyIdentifiers(i.Dependencies)
	deps, err := wstr.Join(ids)
	if err != nil {
		index := -1
		var ne *wstr.NulError
		if errors.As(err, &ne) {
			index = ne.Index
		}
		return RawInfo{}, &ValidationError{Field: "dependency", Index: index, Err: err}
	}
	raw.Dependencies = deps

	if i.Account != nil {
		if raw.AccountName, err = encodeField("account name", -1, i.Account.Name); err != nil {
			return RawInfo{}, err
		}
		if raw.Password, err = encodeField("account password", -1, i.Account.Password); err != nil {
			return RawInfo{}, err
		}
	}

	raw.ServiceType = uint32(i.ServiceType)
	raw.StartType = uint32(i.StartType)
	raw.ErrorControl = uint32(i.ErrorControl)
	return raw, nil
}

// launchCommand escapes the executable and its arguments into one command
// line. Driver paths are stored verbatim.
func (i ServiceInfo) launchCommand() ([]uint16, error) {
	if i.ServiceType.IsDriver() {
		if len(i.LaunchArguments) > 0 {
			return nil, ErrLaunchArgumentsNotSupported
		}
		return encodeField("executable path", -1, i.ExecutablePath)
	}

	cmd, err := wstr.LaunchCommand(i.ExecutablePath, i.LaunchArguments)
	if err != nil {
		var ne *wstr.NulError
		if errors.As(err, &ne) && ne.Index >= 0 {
			return nil, &ValidationError{Field: "launch argument", Index: ne.Index, Err: ne}
		}
		return nil, &ValidationError{Field: "executable path", Index: -1, Err: err}
	}
	return encodeField("launch command", -1, cmd)
}
