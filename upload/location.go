package upload

import (
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/pkg/errors"
)

// S3Options holds the settings used when the location names an S3 store.
// Empty keys fall back to the AWS default credential chain.
type S3Options struct {
	Region    string
	AccessKey string
	SecretKey string
}

// cleanPrefix makes sure the prefix returned is either empty or ends with
// a slash "/".
//
// examples:
//
//	"" -> ""
//	"/" -> ""
//	"/incoming" -> "incoming/"
//	"incoming/bags/" -> "incoming/bags/"
func cleanPrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// Open creates the store described by location. It understands
//
//	"" or "memory"                  a memory store
//	"file:<dir>"                    a FileSystem store rooted at dir
//	"s3:" or "s3:/<prefix>"         Amazon S3
//	"s3://<host:port>[/<prefix>]"   an S3 compatible service at host
//
// Hosts containing "localhost" are reached without TLS and with path style
// bucket addressing, which suits a local minio server.
func Open(location string, opts S3Options) (Store, error) {
	if location == "" || location == "memory" {
		return NewMemory(), nil
	}
	if strings.HasPrefix(location, "file:") {
		root := strings.TrimPrefix(location, "file:")
		if root == "" {
			return nil, errors.Wrapf(ErrBadLocation, "%q has no directory", location)
		}
		return NewFileSystem(root), nil
	}
	u, err := url.Parse(location)
	if err != nil || u.Scheme != "s3" {
		return nil, errors.Wrapf(ErrBadLocation, "%q", location)
	}
	conf := &aws.Config{}
	if opts.Region != "" {
		conf.Region = aws.String(opts.Region)
	}
	if opts.AccessKey != "" {
		conf.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	}
	if u.Host != "" {
		conf.Endpoint = aws.String(u.Host)
		if conf.Region == nil {
			conf.Region = aws.String("us-east-1")
		}
		// disable SSL for local development
		if strings.Contains(u.Host, "localhost") {
			conf.DisableSSL = aws.Bool(true)
			conf.S3ForcePathStyle = aws.Bool(true)
		}
	}
	sess, err := session.NewSession(conf)
	if err != nil {
		return nil, errors.Wrap(err, "s3 session")
	}
	return NewS3(cleanPrefix(u.Path+u.Opaque), sess), nil
}
