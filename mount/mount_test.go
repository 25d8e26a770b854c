// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mount

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		Name   string
		Prefix string
		Expect string
	}{
		{
			Name:   "will reduce an absolute uri to its path",
			Prefix: "http://host/admin/",
			Expect: "/admin",
		},
		{
			Name:   "will reduce an absolute uri without a path to the root",
			Prefix: "https://host",
			Expect: "/",
		},
		{
			Name:   "will strip a trailing slash",
			Prefix: "/admin/",
			Expect: "/admin",
		},
		{
			Name:   "will preserve the root prefix",
			Prefix: "/",
			Expect: "/",
		},
		{
			Name:   "will leave a clean prefix unchanged",
			Prefix: "/db/data",
			Expect: "/db/data",
		},
		{
			Name:   "will pass a malformed uri through unchanged",
			Prefix: "/bad%zz/",
			Expect: "/bad%zz/",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			require.Equal(t, testCase.Expect, Normalize(testCase.Prefix))
		})
	}
}

func TestRegistry_Normalize(t *testing.T) {
	t.Run("will log a warning", func(t *testing.T) {
		t.Run("if the prefix is malformed", func(t *testing.T) {
			var buf bytes.Buffer
			r := NewRegistry(LogHandler(slog.NewJSONHandler(&buf, nil)))

			p := r.Normalize("/bad%zz")
			require.Equal(t, "/bad%zz", p)
			require.Contains(t, buf.String(), "unable to parse mount prefix")
		})
	})
}

func TestRegistry_Mounts(t *testing.T) {
	t.Run("will return one mount per prefix in descending order", func(t *testing.T) {
		r := NewRegistry()
		r.AddStaticContent("browser", "/browser")
		r.AddResourcePackages([]string{"data"}, "/db/data")
		r.AddResourceClasses([]string{"manage"}, "/db/manage/")
		r.AddStaticContent("webadmin", "http://localhost:7474/webadmin/")
		r.AddResourcePackages([]string{"root"}, "/")

		mounts, err := r.Mounts()
		require.NoError(t, err)

		prefixes := make([]string, len(mounts))
		for i, m := range mounts {
			prefixes[i] = m.Prefix
		}
		require.Equal(t, []string{"/webadmin", "/db/manage", "/db/data", "/browser", "/"}, prefixes)
		require.Equal(t, Static, mounts[0].Kind)
		require.Equal(t, "webadmin", mounts[0].Location)
		require.Equal(t, Classes, mounts[1].Kind)
		require.Equal(t, Packages, mounts[2].Kind)
	})

	t.Run("will return a ConflictError", func(t *testing.T) {
		t.Run("if a prefix holds static content and a resource package", func(t *testing.T) {
			r := NewRegistry()
			r.AddStaticContent("browser", "/shared")
			r.AddResourcePackages([]string{"data"}, "/shared/")
			r.AddResourceClasses([]string{"other"}, "/other")

			mounts, err := r.Mounts()
			require.Nil(t, mounts)

			var cerr *ConflictError
			require.ErrorAs(t, err, &cerr)
			require.Equal(t, "/shared", cerr.Prefix)
			require.Equal(t, []Kind{Static, Packages}, cerr.Kinds)
			require.Contains(t, err.Error(), `"/shared"`)
		})

		t.Run("if a prefix holds both packages and classes", func(t *testing.T) {
			r := NewRegistry()
			r.AddResourcePackages([]string{"a"}, "/x")
			r.AddResourceClasses([]string{"b"}, "/x")

			_, err := r.Mounts()

			var cerr *ConflictError
			require.ErrorAs(t, err, &cerr)
			require.Equal(t, []Kind{Packages, Classes}, cerr.Kinds)
		})
	})

	t.Run("will return no mounts", func(t *testing.T) {
		t.Run("if nothing has been registered", func(t *testing.T) {
			mounts, err := NewRegistry().Mounts()
			require.NoError(t, err)
			require.Empty(t, mounts)
		})
	})
}

func TestRegistry_AddResourcePackages(t *testing.T) {
	t.Run("will accumulate names across calls", func(t *testing.T) {
		r := NewRegistry()
		r.AddResourcePackages([]string{"a", "b"}, "/db", "dep1")
		r.AddResourcePackages([]string{"b", "c"}, "/db/", "dep2")

		mounts, err := r.Mounts()
		require.NoError(t, err)
		require.Len(t, mounts, 1)
		require.Equal(t, []string{"a", "b", "c"}, mounts[0].Names)
		require.Equal(t, []any{"dep1", "dep2"}, mounts[0].Injectables)
	})
}

func TestRegistry_RemoveResourcePackages(t *testing.T) {
	t.Run("will leave the remaining names mounted", func(t *testing.T) {
		r := NewRegistry()
		r.AddResourcePackages([]string{"a", "b", "c"}, "/db")
		r.RemoveResourcePackages([]string{"a", "c"}, "/db")

		mounts, err := r.Mounts()
		require.NoError(t, err)
		require.Len(t, mounts, 1)
		require.Equal(t, []string{"b"}, mounts[0].Names)
	})

	t.Run("will keep an emptied bundle mounted", func(t *testing.T) {
		r := NewRegistry()
		r.AddResourcePackages([]string{"a"}, "/db")
		r.RemoveResourcePackages([]string{"a"}, "/db")

		mounts, err := r.Mounts()
		require.NoError(t, err)
		require.Len(t, mounts, 1)
		require.Equal(t, Packages, mounts[0].Kind)
		require.Empty(t, mounts[0].Names)
	})

	t.Run("will do nothing", func(t *testing.T) {
		t.Run("if no bundle is mounted at the prefix", func(t *testing.T) {
			r := NewRegistry()
			r.RemoveResourcePackages([]string{"a"}, "/db")
			require.Zero(t, r.Len())
		})
	})
}

func TestRegistry_RemoveResourceClasses(t *testing.T) {
	t.Run("will remove only the given names", func(t *testing.T) {
		r := NewRegistry()
		r.AddResourceClasses([]string{"x", "y"}, "/c")
		r.RemoveResourceClasses([]string{"x"}, "/c/")

		mounts, err := r.Mounts()
		require.NoError(t, err)
		require.Equal(t, []string{"y"}, mounts[0].Names)
	})
}

func TestRegistry_RemoveStaticContent(t *testing.T) {
	t.Run("will unmount the prefix", func(t *testing.T) {
		t.Run("if the location matches", func(t *testing.T) {
			r := NewRegistry()
			r.AddStaticContent("browser", "/browser")
			r.RemoveStaticContent("browser", "/browser/")
			require.Zero(t, r.Len())
		})

		t.Run("if the location does not match", func(t *testing.T) {
			r := NewRegistry()
			r.AddStaticContent("browser", "/browser")
			r.AddStaticContent("docs", "/docs")
			r.RemoveStaticContent("other", "/browser")

			mounts, err := r.Mounts()
			require.NoError(t, err)
			require.Len(t, mounts, 1)
			require.Equal(t, "/docs", mounts[0].Prefix)
		})
	})
}

func TestRegistry_debugLogging(t *testing.T) {
	t.Run("will log every change to the mounts at debug level", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewRegistry(LogHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

		r.AddStaticContent("browser", "/browser/")
		r.AddResourcePackages([]string{"data"}, "/db/data")
		r.AddResourceClasses([]string{"health"}, "/db/manage")
		r.RemoveResourcePackages([]string{"data"}, "/db/data")
		r.RemoveResourceClasses([]string{"health"}, "/missing")
		r.RemoveStaticContent("browser", "/browser")

		var records []map[string]any
		dec := json.NewDecoder(&buf)
		for dec.More() {
			var rec map[string]any
			require.NoError(t, dec.Decode(&rec))
			records = append(records, rec)
		}
		require.Len(t, records, 5)

		msgs := make([]string, len(records))
		for i, rec := range records {
			require.Equal(t, "DEBUG", rec["level"])
			msgs[i] = rec["msg"].(string)
		}
		require.Equal(t, []string{
			"adding static content",
			"adding resource packages",
			"adding resource classes",
			"removed resource packages",
			"removed static content",
		}, msgs)
		require.Equal(t, "/browser", records[0]["prefix"])
	})

	t.Run("will not log", func(t *testing.T) {
		t.Run("if the logger is not enabled for debug", func(t *testing.T) {
			var buf bytes.Buffer
			r := NewRegistry(LogHandler(slog.NewJSONHandler(&buf, nil)))
			r.AddStaticContent("browser", "/browser")
			require.Zero(t, buf.Len())
		})
	})
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "static", Static.String())
	require.Equal(t, "packages", Packages.String())
	require.Equal(t, "classes", Classes.String())
	require.Equal(t, "Kind(7)", Kind(7).String())
}
