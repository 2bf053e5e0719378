package common

// Trilean is a boolean that can also be undefined. Witness fame starts out
// Undefined and settles to True or False once decided.
type Trilean int

const (
	// Undefined means the value has not been decided yet
	Undefined Trilean = iota
	// True means the value is decided and true
	True
	// False means the value is decided and false
	False
)

var trileans = []string{"Undefined", "True", "False"}

// String returns the string representation of the Trilean
func (t Trilean) String() string {
	if t < Undefined || t > False {
		return "Invalid"
	}
	return trileans[t]
}

// TrileanOf converts a decided boolean into a Trilean
func TrileanOf(b bool) Trilean {
	if b {
		return True
	}
	return False
}

// Decided is true when the value is no longer Undefined
func (t Trilean) Decided() bool {
	return t == True || t == False
}
