// Command podpress turns podcast episodes into WordPress articles.
//
// podpress serve runs the HTTP API with its worker pool. podpress process
// runs a single job in the foreground. The remaining commands inspect the
// daily quota, check external tools and WordPress credentials, and manage the
// configuration file.
package main
