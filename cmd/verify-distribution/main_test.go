package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	Convey("Given a two round, two player distribution file", t, func() {
		path := filepath.Join(t.TempDir(), "dist.json")
		So(os.WriteFile(path, []byte(`{"0": 1, "1": 2, "2": 1}`), 0o600), ShouldBeNil)
		var stdout, stderr bytes.Buffer

		Convey("When verified against its own outcome space", func() {
			code := run([]string{"-distribution", path, "-participants", "2", "-rounds", "2"}, &stdout, &stderr)

			Convey("Then it sums to one", func() {
				So(code, ShouldEqual, 0)
				So(strings.TrimSpace(stdout.String()), ShouldEqual, "1")
			})
		})

		Convey("When verified against a larger outcome space", func() {
			code := run([]string{"-distribution", path, "-participants", "4", "-rounds", "2"}, &stdout, &stderr)

			Convey("Then the shortfall is printed", func() {
				So(code, ShouldEqual, 0)
				So(strings.TrimSpace(stdout.String()), ShouldEqual, "0.25")
			})
		})

		Convey("When a required flag is missing", func() {
			So(run([]string{"-distribution", path}, &stdout, &stderr), ShouldEqual, 2)
		})

		Convey("When the file does not exist", func() {
			code := run([]string{"-distribution", path + ".missing", "-participants", "2", "-rounds", "2"}, &stdout, &stderr)
			So(code, ShouldEqual, 1)
			So(stderr.String(), ShouldContainSubstring, "verify-distribution failed")
		})
	})
}
