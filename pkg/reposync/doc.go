// Package reposync clones or updates the environment repository.
//
// First run (Absent): the SSH remote is probed with "git ls-remote". When it
// answers, the clone uses SSH; when it does not, the clone uses HTTPS and the
// SSH URL is only recorded as the push URL. Both transports failing is fatal.
//
// Later runs (Present): fetch, then fast-forward with
// "rebase --autostash @{u}" when HEAD is an ancestor of upstream. Diverged
// history, network errors and failed rebases leave the checkout as it was
// and are reported as warnings. Local commits and uncommitted work are never
// discarded.
package reposync
