package scm

import "strings"

// groupPrefix marks a load-ordering group in a dependency list.
const groupPrefix = "+"

// DependencyKind tells service dependencies from group dependencies.
type DependencyKind int

const (
	DependsOnService DependencyKind = iota
	DependsOnGroup
)

// Dependency is a service or load-ordering group that must start first.
type Dependency struct {
	Kind DependencyKind
	Name string
}

// ServiceDependency is shorthand for a dependency on a named service.
func ServiceDependency(name string) Dependency {
	return Dependency{Kind: DependsOnService, Name: name}
}

// GroupDependency is shorthand for a dependency on a load-ordering group.
func GroupDependency(name string) Dependency {
	return Dependency{Kind: DependsOnGroup, Name: name}
}

// Identifier returns the wire form of d.
func (d Dependency) Identifier() string {
	if d.Kind == DependsOnGroup {
		return groupPrefix + d.Name
	}
	return d.Name
}

func (d Dependency) String() string {
	return d.Identifier()
}

// ParseDependency is the inverse of Identifier.
func ParseDependency(id string) Dependency {
	if name, ok := strings.CutPrefix(id, groupPrefix); ok {
		return GroupDependency(name)
	}
	return ServiceDependency(id)
}

func dependencyIdentifiers(deps []Dependency) []string {
	ids := make([]string, len(deps))
	for i, d := range deps {
		ids[i] = d.Identifier()
	}
	return ids
}

func parseDependencies(ids []string) []Dependency {
	deps := make([]Dependency, len(ids))
	for i, id := range ids {
		deps[i] = ParseDependency(id)
	}
	return deps
}
