package kernel

import "github.com/capsule-systems/capsule/internal/ids"

// ServiceDescriptor is what a service registers under a name
// (spec.md §4.2: "register_service(ServiceId, descriptor, version_policy)").
type ServiceDescriptor struct {
	ID      ids.ServiceId
	Name    string
	Version SchemaVersion
}

// serviceRegistry is the kernel-private name -> descriptor table.
type serviceRegistry struct {
	byName map[string]ServiceDescriptor
}

func newServiceRegistry() *serviceRegistry {
	return &serviceRegistry{byName: make(map[string]ServiceDescriptor)}
}

func (r *serviceRegistry) register(name string, desc ServiceDescriptor) {
	r.byName[name] = desc
}

// lookup returns the descriptor registered under name, for compatibility
// checking against want by the caller.
func (r *serviceRegistry) lookup(name string) (ServiceDescriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}
