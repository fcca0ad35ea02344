// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	ModuleNotFoundId
	NoWheelId
	MalformedWheelId
	PythonNotFoundId
	ResolverNotFoundId
	PublishFailedId
	ArchiveTooLargeId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Markdown returns the full message including the "See also" links.
func (i *Issue) Markdown() string {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return sb.String()
}

// Render renders the issue with the named glamour style ("dark", "light",
// "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or did not match the schema.

## Things you can try:
- Check the CUE syntax; every field is optional
- Compare your file with the defaults:
~~~
$ pylayer config dump
~~~

- Recreate a default file in a fresh location:
~~~
$ pylayer config init
~~~

- Look for PYLAYER_* environment variables with invalid values`,
		docLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# pip could not find the module!

` + "`pip download`" + ` failed for the requested module. Its own error output is shown above.

## Things you can try:
- Check the module name on PyPI; names are not always the import name
- Pin a version that exists, e.g. ` + "`numpy==1.26.4`" + `
- When targeting a platform, make sure a wheel exists for it:
~~~cue
resolver: platform: "manylinux2014_x86_64"
~~~

- Point pip at your own index:
~~~cue
resolver: index_url: "https://pypi.example.com/simple"
~~~`,
		docLinks: []HttpLink{"https://pip.pypa.io/en/stable/cli/pip_download/"},
	}

	noWheelIssue = &Issue{
		id: NoWheelId,
		mdMsg: `
# No wheel file was downloaded!

pip succeeded but did not leave a ` + "`.whl`" + ` file behind. This usually means the
module only ships a source distribution.

## Things you can try:
- Refuse source distributions so pip reports the problem directly:
~~~cue
resolver: only_binary: true
~~~

- Choose a version of the module that publishes wheels`,
		docLinks: []HttpLink{"https://pip.pypa.io/en/stable/cli/pip_download/"},
	}

	malformedWheelIssue = &Issue{
		id: MalformedWheelId,
		mdMsg: `
# The downloaded wheel is not usable!

The wheel's file name does not follow the naming convention, or the file is
not a valid zip archive.

## Things you can try:
- Retry; a truncated download leaves a broken archive
- Inspect the file:
~~~
$ pylayer inspect <file>.whl
~~~

- Relocate it locally with checksum verification:
~~~
$ pylayer relocate --verify <file>.whl
~~~`,
		docLinks: []HttpLink{"https://peps.python.org/pep-0427/"},
	}

	pythonNotFoundIssue = &Issue{
		id: PythonNotFoundId,
		mdMsg: `
# Python runtime version unknown!

pylayer needs the target Python version to place packages under
` + "`python/lib/pythonX.Y/site-packages`" + `.

## Things you can try:
- Pass it explicitly:
~~~
$ pylayer publish numpy --python-version 3.12
~~~

- Pin it in your configuration:
~~~cue
runtime: python_version: "3.12"
~~~

- Install python3 and make sure it is in your PATH`,
		docLinks: []HttpLink{"https://docs.aws.amazon.com/lambda/latest/dg/packaging-layers.html"},
	}

	resolverNotFoundIssue = &Issue{
		id: ResolverNotFoundId,
		mdMsg: `
# pip could not be started!

The resolver command could not be executed.

## Things you can try:
- Install pip for your interpreter:
~~~
$ python3 -m ensurepip --upgrade
~~~

- Point pylayer at another interpreter:
~~~cue
resolver: command: "/usr/local/bin/python3.12 -m pip"
~~~`,
		docLinks: []HttpLink{"https://pip.pypa.io/en/stable/installation/"},
	}

	publishFailedIssue = &Issue{
		id: PublishFailedId,
		mdMsg: `
# Failed to publish the layer!

The Lambda service rejected the PublishLayerVersion call.

## Common causes:
- No AWS credentials in the environment
- Missing ` + "`lambda:PublishLayerVersion`" + ` permission
- The wrong region

## Things you can try:
- Check which identity is in use:
~~~
$ aws sts get-caller-identity
~~~

- Set the region:
~~~cue
publish: region: "eu-west-1"
~~~`,
		docLinks: []HttpLink{"https://docs.aws.amazon.com/lambda/latest/api/API_PublishLayerVersion.html"},
	}

	archiveTooLargeIssue = &Issue{
		id: ArchiveTooLargeId,
		mdMsg: `
# The layer archive is too large for a direct upload!

Archives above the inline limit must be staged in S3.

## Things you can try:
- Configure a staging bucket you can write to:
~~~cue
publish: {
	s3_bucket:     "my-layer-staging"
	s3_key_prefix: "pylayer"
}
~~~

- The identity also needs ` + "`s3:PutObject`" + ` and ` + "`s3:DeleteObject`" + ` on that bucket`,
		docLinks: []HttpLink{"https://docs.aws.amazon.com/lambda/latest/dg/gettingstarted-limits.html"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

pylayer could not write to its scratch directory.

## Things you can try:
- Choose a directory you own:
~~~cue
scratch_dir: "/var/tmp/pylayer"
~~~

- Or override it for one run:
~~~
$ PYLAYER_SCRATCH_DIR=/var/tmp/pylayer pylayer publish numpy
~~~`,
		docLinks: []HttpLink{"https://docs.aws.amazon.com/lambda/latest/dg/configuration-ephemeral-storage.html"},
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id(): configLoadFailedIssue,
		moduleNotFoundIssue.Id():   moduleNotFoundIssue,
		noWheelIssue.Id():          noWheelIssue,
		malformedWheelIssue.Id():   malformedWheelIssue,
		pythonNotFoundIssue.Id():   pythonNotFoundIssue,
		resolverNotFoundIssue.Id(): resolverNotFoundIssue,
		publishFailedIssue.Id():    publishFailedIssue,
		archiveTooLargeIssue.Id():  archiveTooLargeIssue,
		permissionDeniedIssue.Id(): permissionDeniedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
