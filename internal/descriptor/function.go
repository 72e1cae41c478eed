package descriptor

// FunctionDescriptor describes one function exported by an interface, as
// declared in a plugin's interface descriptor. It carries just enough
// shape information for shim synthesis to build a host function and for
// the dispatcher to route a call by name.
type FunctionDescriptor struct {
	// Name is the function's name within its package, e.g. "get".
	Name string
	// ReturnKind tells the shim whether the return value needs resource
	// handle translation.
	ReturnKind ReturnKind
	// IsMethod reports whether the function takes an implicit receiver
	// (an own/borrow handle to one of the interface's resources) as its
	// first argument.
	IsMethod bool
	// AcceptsBorrow reports whether any parameter is a borrowed resource
	// handle, which the shim must release at the end of the call's scope
	// rather than transfer ownership of.
	AcceptsBorrow bool
	// Unsupported marks a signature that mentions a future, stream, or
	// error-context type. Shim synthesis refuses these at load time
	// rather than attempting to lower them.
	Unsupported bool
}

// QualifiedName returns "package_name.function_name", the key the
// dispatcher and shim registry use to look up a function across plugins.
func QualifiedName(packageName, functionName string) string {
	return packageName + "." + functionName
}
