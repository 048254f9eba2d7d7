// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	InstallDirNotFoundId
	InvalidRangeId
	InvalidVersionId
	BundleNotFoundId
	OrphanFixId
	CacheCorruptId
	PermissionDeniedId
	InvalidPatternId
	RepositoryNotFoundId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
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

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your config.cue could not be read or does not match the schema.

## Things you can try:
- Print the effective configuration:
~~~
$ bundlerepo config show
~~~

- Print the path that is being loaded:
~~~
$ bundlerepo config path
~~~

- Recreate the default file:
~~~
$ bundlerepo config init
~~~`,
	}

	installDirNotFoundIssue = &Issue{
		id: InstallDirNotFoundId,
		mdMsg: `
# Installation directory not found!

The core repository is rooted at the installation directory, and it does not exist.

## Things you can try:
- Pass it explicitly:
~~~
$ bundlerepo resolve --install-dir /opt/product my.bundle
~~~

- Or set it in config.cue:
~~~cue
install_dir: "/opt/product"
~~~`,
	}

	invalidRangeIssue = &Issue{
		id: InvalidRangeId,
		mdMsg: `
# Invalid version range!

Ranges use interval notation with inclusive '[' ']' and exclusive '(' ')' bounds.

## Examples:
- ` + "`[1.0.0,2.0.0)`" + ` accepts 1.x.x
- ` + "`1.2.0`" + ` accepts 1.2.0 and anything newer
- ` + "`0`" + ` or an empty string accepts every version`,
	}

	invalidVersionIssue = &Issue{
		id: InvalidVersionId,
		mdMsg: `
# Invalid version!

Versions are ` + "`major.minor.micro`" + ` with an optional qualifier, for example ` + "`3.1.0.v20240101`" + `.
Missing components default to zero.`,
	}

	bundleNotFoundIssue = &Issue{
		id: BundleNotFoundId,
		mdMsg: `
# Bundle not found!

No archive in the searched locations has the requested identifier inside the range.

## Things you can try:
- List what each repository can see:
~~~
$ bundlerepo list
~~~

- Widen the range, or pass additional search roots with ` + "`--locations`" + `
- If a cache is stale, clear it:
~~~
$ bundlerepo cache clear
~~~`,
	}

	orphanFixIssue = &Issue{
		id: OrphanFixId,
		mdMsg: `
# Interim fix without a base!

An interim fix was found but the bundle it patches is missing from every search root.
The fix is reported and ignored.

## Things you can try:
- Install the base bundle with the same major.minor.micro version
- Remove the stale fix archive`,
	}

	cacheCorruptIssue = &Issue{
		id: CacheCorruptId,
		mdMsg: `
# Repository cache is corrupt!

The cache will be rebuilt on the next run. You can also remove it now:
~~~
$ bundlerepo cache clear
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to read an archive or write the cache.

## Things you can try:
- Check file/directory permissions of the installation directory
- Point the work area at a directory you own:
~~~cue
work_dir: "/tmp/bundlerepo"
~~~`,
	}

	invalidPatternIssue = &Issue{
		id: InvalidPatternId,
		mdMsg: `
# Invalid archive pattern!

` + "`archive_pattern`" + ` is a glob matched against file names, for example ` + "`*.jar`" + ` or ` + "`*.{jar,zip}`" + `.`,
	}

	repositoryNotFoundIssue = &Issue{
		id: RepositoryNotFoundId,
		mdMsg: `
# Repository not found!

Only "core", "usr" and the extensions listed in config.cue are registered.

## Things you can try:
- Register an extension:
~~~cue
extensions: [{name: "ext", install_dir: "/opt/ext"}]
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		installDirNotFoundIssue.Id(): installDirNotFoundIssue,
		invalidRangeIssue.Id():       invalidRangeIssue,
		invalidVersionIssue.Id():     invalidVersionIssue,
		bundleNotFoundIssue.Id():     bundleNotFoundIssue,
		orphanFixIssue.Id():          orphanFixIssue,
		cacheCorruptIssue.Id():       cacheCorruptIssue,
		permissionDeniedIssue.Id():   permissionDeniedIssue,
		invalidPatternIssue.Id():     invalidPatternIssue,
		repositoryNotFoundIssue.Id(): repositoryNotFoundIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
