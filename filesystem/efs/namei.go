package efs

import (
	"strings"
)

const maxNameLen = 255

// namei resolves a slash-separated path to an inode number, starting from
// the root inode.
func namei(fsys *FileSystem, path string) (int32, error) {
	cur := int32(rootIno)
	path = strings.Trim(path, "/")
	if path == "" {
		return cur, nil
	}

	remaining := path
	for {
		component, rest, hasRest := cutFirst(remaining)
		if len(component) > maxNameLen {
			return 0, ErrInvalidArgument
		}

		entries, err := readDirblks(fsys, cur)
		if err != nil {
			return 0, err
		}

		found := false
		for _, e := range entries {
			if e.Name == component {
				cur = e.Inode
				found = true
				break
			}
		}
		if !found {
			return 0, ErrNoSuchEntry
		}
		if !hasRest {
			return cur, nil
		}
		remaining = rest
	}
}

func cutFirst(path string) (component, rest string, hasRest bool) {
	i := strings.IndexByte(path, '/')
	if i < 0 {
		return path, "", false
	}
	return path[:i], strings.TrimLeft(path[i+1:], "/"), true
}

// VisitFunc is invoked once per tree-walk entry with its full path and
// decoded stat record. A non-nil return stops the walk and is propagated to
// Walk's caller.
type VisitFunc func(path string, st Stat) error

// Walk performs a breadth-first traversal of the directory tree rooted at
// path, invoking visit for every entry (files and directories alike).
func Walk(fsys *FileSystem, path string, visit VisitFunc) error {
	startIno, err := namei(fsys, path)
	if err != nil {
		return err
	}

	type queueItem struct {
		path string
		ino  int32
	}
	queue := []queueItem{{path: path, ino: startIno}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		entries, err := readDirblks(fsys, item.ino)
		if err != nil {
			return err
		}

		for _, e := range entries {
			if e.Name == "." || e.Name == ".." {
				continue
			}
			childPath := e.Name
			if item.path != "" && item.path != "." {
				childPath = strings.TrimRight(item.path, "/") + "/" + e.Name
			}

			st, err := statByInode(fsys, e.Inode)
			if err != nil {
				return err
			}

			if err := visit(childPath, st); err != nil {
				return err
			}

			if st.isDir() {
				queue = append(queue, queueItem{path: childPath, ino: e.Inode})
			}
		}
	}

	return nil
}
