package upload

import (
	"bytes"
	"context"
	"log"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	raven "github.com/getsentry/raven-go"
)

// S3 is a store kept on AWS S3 or a service with the same API. Prefix is
// prepended to every key, so one bucket can receive uploads from more than
// one source. Do not change Prefix concurrently with calls using the
// structure.
type S3 struct {
	svc    *s3.S3
	Prefix string

	// ctx is attached to every request made through this store.
	ctx context.Context
}

var (
	// ensure S3 satisfies the Store interface
	_ Store = &S3{}
)

// NewS3 creates a new S3 store. The authorization method and credentials in
// the session are used for all accesses.
func NewS3(prefix string, awsSession *session.Session) *S3 {
	return &S3{
		Prefix: prefix,
		svc:    s3.New(awsSession),
		ctx:    context.Background(),
	}
}

// WithContext returns a copy of the store whose requests are cancelled along
// with ctx.
func (s *S3) WithContext(ctx context.Context) Store {
	s2 := *s
	s2.ctx = ctx
	return &s2
}

// Create returns a writer to upload content to bucket under key. Data is
// batched and sent using the multipart interface once it outgrows a single
// part. The part sizes increase, so objects up to the 5 TB limit S3 imposes
// are possible.
func (s *S3) Create(bucket, key string, meta map[string]string) (ObjectWriter, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	m := make(map[string]*string, len(meta))
	for k, v := range meta {
		m[k] = aws.String(v)
	}
	return &s3WriteCloser{
		ctx:    s.ctx,
		svc:    s.svc,
		bucket: bucket,
		key:    s.Prefix + key,
		meta:   m,
	}, nil
}

// s3WriteCloser uploads one object. If the entire object fits into one
// buffer it is sent with a single PUT. Otherwise the multipart interface is
// used.
//
// The final size is not known while writing, so the size of each part grows
// as the upload proceeds. This keeps parts small for small packages while
// still allowing very large ones. AWS restricts part sizes to between 5 MB
// and 5 GB, and allows at most 10,000 parts.
//
// Part i is sent once its buffer passes min(a*2^i, b) bytes, with
// a = 64 MiB and b = 4 GiB:
//
//	Package Size    # Parts
//	------------    -------
//	        1 GB          5
//	       10 GB          8
//	      100 GB         36
//	     1000 GB        301
type s3WriteCloser struct {
	ctx      context.Context
	svc      *s3.S3
	bucket   string
	key      string
	meta     map[string]*string
	buf      *bytes.Buffer // part being filled
	isMulti  bool          // true once a multipart upload is started
	uploadID string        // the multipart id S3 gave us
	part     int           // 0-based number of the part being filled. AWS is 1-based
	etags    []string      // etags[i] is the etag for part i
	abort    bool          // true to abandon the upload at close
}

// The relationship partBaseSize << 6 == partMaxSize is assumed by Write.
const (
	partBaseSize = 64 * 1024 * 1024
	partMaxSize  = 4 * 1024 * 1024 * 1024
)

// partBuffers holds spare buffers shared by every upload.
var partBuffers sync.Pool

func (wc *s3WriteCloser) Write(p []byte) (int, error) {
	if wc.buf == nil {
		wc.buf = getbuf()
	}
	n, err := wc.buf.Write(p)
	if n == 0 && err != nil {
		wc.abort = true
		return n, err
	}
	threshold := partMaxSize
	if wc.part < 6 {
		threshold = partBaseSize << wc.part
	}
	if wc.buf.Len() > threshold {
		err = wc.uploadpart()
		wc.buf.Reset()
		if err != nil {
			wc.abort = true
			return 0, err
		}
		wc.part++
	}
	return n, nil
}

// Abort abandons the upload. Parts already sent are discarded by S3.
func (wc *s3WriteCloser) Abort() error {
	wc.abort = true
	return wc.Close()
}

// Close sends anything still buffered and then completes the upload. If
// there were any errors, now or during Write, the entire upload is
// abandoned.
func (wc *s3WriteCloser) Close() error {
	if wc.buf != nil {
		defer func() {
			partBuffers.Put(wc.buf)
			wc.buf = nil
		}()
	}

	if !wc.isMulti {
		if wc.abort {
			return nil
		}
		return wc.uploadfull()
	}

	var err error
	if !wc.abort && wc.buf != nil && wc.buf.Len() > 0 {
		err = wc.uploadpart()
		if err != nil {
			wc.abort = true
		}
	}
	if wc.abort {
		_, err2 := wc.svc.AbortMultipartUploadWithContext(wc.ctx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(wc.bucket),
			Key:      aws.String(wc.key),
			UploadId: aws.String(wc.uploadID),
		})
		if err2 != nil {
			log.Println("S3 abort:", wc.key, err2)
		}
		if err == nil {
			err = err2
		}
		return err
	}
	err = wc.finishMultipart()
	if err != nil {
		log.Println("S3 complete:", wc.key, err)
		wc.capture(err)
	}
	return err
}

func getbuf() *bytes.Buffer {
	b, ok := partBuffers.Get().(*bytes.Buffer)
	if !ok {
		b = &bytes.Buffer{}
		b.Grow(2 * partBaseSize)
	}
	b.Reset()
	return b
}

func (wc *s3WriteCloser) capture(err error) {
	raven.CaptureError(err, map[string]string{"Bucket": wc.bucket, "Key": wc.key})
}

func (wc *s3WriteCloser) startMultipart() error {
	result, err := wc.svc.CreateMultipartUploadWithContext(wc.ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(wc.bucket),
		Key:         aws.String(wc.key),
		ContentType: aws.String("application/zip"),
		Metadata:    wc.meta,
	})
	if err != nil {
		log.Println("S3 startMultipart:", wc.key, err)
		wc.capture(err)
		return err
	}
	wc.isMulti = true
	wc.uploadID = *result.UploadId
	return nil
}

func (wc *s3WriteCloser) finishMultipart() error {
	var completed []*s3.CompletedPart
	for i, etag := range wc.etags {
		completed = append(completed, &s3.CompletedPart{
			ETag:       aws.String(etag),
			PartNumber: aws.Int64(int64(i + 1)),
		})
	}
	_, err := wc.svc.CompleteMultipartUploadWithContext(wc.ctx,
		&s3.CompleteMultipartUploadInput{
			Bucket:   aws.String(wc.bucket),
			Key:      aws.String(wc.key),
			UploadId: aws.String(wc.uploadID),
			MultipartUpload: &s3.CompletedMultipartUpload{
				Parts: completed,
			},
		})
	return err
}

func (wc *s3WriteCloser) uploadpart() error {
	if !wc.isMulti {
		if err := wc.startMultipart(); err != nil {
			return err
		}
	}
	output, err := wc.svc.UploadPartWithContext(wc.ctx, &s3.UploadPartInput{
		Body:       bytes.NewReader(wc.buf.Bytes()), // needs Seek()
		Bucket:     aws.String(wc.bucket),
		Key:        aws.String(wc.key),
		PartNumber: aws.Int64(int64(wc.part + 1)),
		UploadId:   aws.String(wc.uploadID),
	})
	if err != nil {
		log.Println("S3 uploadpart:", wc.key, wc.part+1, err)
		wc.capture(err)
		return err
	}
	if output.ETag == nil {
		log.Println("S3 nil ETag for part", wc.part+1, "key=", wc.key)
		return ErrNoETag
	}
	wc.etags = append(wc.etags, *output.ETag)
	return nil
}

func (wc *s3WriteCloser) uploadfull() error {
	// buf is nil when closed without any writes
	source := &bytes.Reader{}
	if wc.buf != nil {
		source.Reset(wc.buf.Bytes())
	}
	_, err := wc.svc.PutObjectWithContext(wc.ctx, &s3.PutObjectInput{
		Body:          source,
		Bucket:        aws.String(wc.bucket),
		Key:           aws.String(wc.key),
		ContentLength: aws.Int64(int64(source.Len())),
		ContentType:   aws.String("application/zip"),
		Metadata:      wc.meta,
	})
	if err != nil {
		log.Println("S3 uploadfull:", wc.key, err)
		wc.capture(err)
	}
	return err
}
