package domain

import "regexp"

// institutionalEmailPattern accepts addresses like name@iitb.ac.in, name@iitd.ac.in
// or the bare name@iit.ac.in. The check is case-insensitive and runs server-side
// on every issuance regardless of what the client already validated.
var institutionalEmailPattern = regexp.MustCompile(`(?i)^[a-z0-9._%+-]+@iit[a-z]*\.ac\.in$`)

// ValidInstitutionalEmail reports whether email belongs to the IIT address space.
func ValidInstitutionalEmail(email string) bool {
	return institutionalEmailPattern.MatchString(email)
}
