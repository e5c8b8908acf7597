package viewcache

import "strconv"

// Route paths whose rendered pages are cached.
const (
	HomePath  = "/"
	AdminPath = "/admin"
	Demo3Path = "/demo3"
)

func PostPath(id int) string {
	return "/blog/" + strconv.Itoa(id)
}
