package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mit-pdos/go-extentfs/config"
	"github.com/mit-pdos/go-extentfs/dir"
	"github.com/mit-pdos/go-extentfs/disk"
	"github.com/mit-pdos/go-extentfs/filesys"
	"github.com/mit-pdos/go-extentfs/util"
)

const usage = `usage: extentfs [flags] command [args]

commands:
  format              initialize the disk image
  cp <host> <path>    copy a host file into the image
  mkdir <path>        create a directory and any missing parents
  ls [path]           list a directory
  lsr [path]          list a directory and everything under it
  rm <path>           remove a file or empty directory
  rmr <path>          remove a file or directory tree
  cat <path>          write a file's contents to stdout
  print               dump the bitmap and root directory
  check               verify the bitmap against the directory tree

flags:
`

func kind(e dir.Entry) string {
	if e.IsDir {
		return "D"
	}
	return "F"
}

func copyIn(fs *filesys.FileSystem, from, to string) error {
	v, err := os.ReadFile(from)
	if err != nil {
		return err
	}
	if err := fs.Create(to, uint64(len(v))); err != nil {
		return err
	}
	f, err := fs.Open(to)
	if err != nil {
		return err
	}
	_, err = f.WriteAt(v, 0)
	return err
}

func run(fs *filesys.FileSystem, cmd string, args []string) error {
	arg := func(i int, def string) string {
		if i < len(args) {
			return args[i]
		}
		return def
	}
	switch cmd {
	case "cp":
		if len(args) != 2 {
			return fmt.Errorf("cp needs a host file and a path")
		}
		return copyIn(fs, args[0], args[1])
	case "mkdir":
		return fs.CreateDir(arg(0, ""))
	case "ls":
		es, err := fs.List(arg(0, "/"))
		if err != nil {
			return err
		}
		for _, e := range es {
			fmt.Printf("%s\t%s\t%d\n", kind(e), e.Name, e.Sector)
		}
	case "lsr":
		es, err := fs.ListTree(arg(0, "/"))
		if err != nil {
			return err
		}
		for _, e := range es {
			fmt.Printf("%s%s %s\n", strings.Repeat("  ", e.Depth), kind(e.Entry), e.Name)
		}
	case "rm":
		return fs.Remove(arg(0, ""))
	case "rmr":
		return fs.RemoveTree(arg(0, ""))
	case "cat":
		f, err := fs.Open(arg(0, ""))
		if err != nil {
			return err
		}
		_, err = io.Copy(os.Stdout, f)
		return err
	case "print":
		return fs.Print(os.Stdout)
	case "check":
		if err := fs.Check(); err != nil {
			return err
		}
		fmt.Println("ok")
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func main() {
	cfg := config.Load()
	flag.StringVar(&cfg.DiskPath, "disk", cfg.DiskPath, "disk image path")
	flag.Uint64Var(&cfg.NumSectors, "sectors", cfg.NumSectors, "disk size in sectors")
	flag.Uint64Var(&cfg.Debug, "debug", cfg.Debug, "debug level")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	util.Debug = cfg.Debug

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	d, err := disk.NewFileDisk(cfg.DiskPath, cfg.NumSectors)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer d.Close()

	var fs *filesys.FileSystem
	if flag.Arg(0) == "format" {
		fs, err = filesys.Format(d)
	} else {
		fs, err = filesys.Mount(d)
	}
	if err == nil && flag.Arg(0) != "format" {
		err = run(fs, flag.Arg(0), flag.Args()[1:])
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		d.Close()
		os.Exit(1)
	}
}
