package platform

// BasePackages returns the host tools the provisioner depends on, named
// the way the family's repositories name them.
func BasePackages(f Family) []string {
	if f == FamilyDebian {
		return []string{"curl", "logrotate", "tar", "xz-utils"}
	}
	return []string{"curl", "logrotate", "tar", "xz"}
}
